package http

import (
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	InviteToken string `json:"inviteToken,omitempty"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name       *string `json:"name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Batch      *string `json:"batch,omitempty"`
	Department *string `json:"department,omitempty"`
}

type UserResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Batch      string    `json:"batch,omitempty"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuthResponse carries the bearer token alongside the account. The token is
// also set as an HttpOnly cookie for browser clients.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type SessionResponse struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Current    bool      `json:"current"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreateClubRequest struct {
	Name        string `json:"name"`
	University  string `json:"university"`
	SessionYear string `json:"sessionYear"`
	Designation string `json:"designation,omitempty"`
}

type UpdateClubRequest struct {
	Name        *string `json:"name,omitempty"`
	University  *string `json:"university,omitempty"`
	SessionYear *string `json:"sessionYear,omitempty"`
	About       *string `json:"about,omitempty"`
}

type ClubResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	University  string    `json:"university"`
	SessionYear string    `json:"sessionYear,omitempty"`
	About       string    `json:"about,omitempty"`
	LogoURL     string    `json:"logoUrl,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MyClubResponse is a club plus the caller's own standing in it.
type MyClubResponse struct {
	ClubResponse
	Role        string `json:"role"`
	Designation string `json:"designation,omitempty"`
}

type InviteMemberRequest struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	Designation string `json:"designation,omitempty"`
}

type AcceptInviteRequest struct {
	InviteToken string `json:"inviteToken"`
}

type UpdateMemberRequest struct {
	Role        *string `json:"role,omitempty"`
	Designation *string `json:"designation,omitempty"`
}

type MemberResponse struct {
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Designation string    `json:"designation,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type MembershipResponse struct {
	ClubID      string    `json:"clubId"`
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	Designation string    `json:"designation,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		AvatarURL:  u.AvatarURL,
		Bio:        u.Bio,
		Batch:      u.Batch,
		Department: u.Department,
		CreatedAt:  u.CreatedAt,
	}
}

func toClubResponse(c domain.Club) ClubResponse {
	return ClubResponse{
		ID:          c.ID,
		Name:        c.Name,
		University:  c.University,
		SessionYear: c.SessionYear,
		About:       c.About,
		LogoURL:     c.LogoURL,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
}

func toMemberResponse(m domain.Member) MemberResponse {
	return MemberResponse{
		UserID:      m.UserID,
		Name:        m.Name,
		Email:       m.Email,
		Role:        m.Role.String(),
		Designation: m.Designation,
		JoinedAt:    m.JoinedAt,
	}
}

func toMembershipResponse(m domain.Membership) MembershipResponse {
	return MembershipResponse{
		ClubID:      m.ClubID,
		UserID:      m.UserID,
		Role:        m.Role.String(),
		Designation: m.Designation,
		JoinedAt:    m.JoinedAt,
	}
}

func toSessionResponse(s domain.Session, currentID string) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		UserAgent:  s.UserAgent,
		IP:         s.IP,
		Current:    s.ID == currentID,
		LastActive: s.LastActive,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
	}
}
