package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// UsersHandler serves account endpoints: signup, signin, profile, and the
// password reset loop.
type UsersHandler struct {
	UserService    *service.UserService
	SessionService *service.SessionService

	// CookieSecure marks the session cookie Secure; off only in dev.
	CookieSecure bool
}

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleSignup godoc
//
//	@Summary		Register a new account
//	@Description	Creates an account and signs the user in. An optional invite token joins the new account to a club in the same step; a bad token fails the whole signup.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignupRequest	true	"Signup request"
//	@Success		201		{object}	AuthResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse	"invite email mismatch"
//	@Failure		409		{object}	ErrorResponse	"email already registered"
//	@Router			/v1/users/signup [post]
func (h *UsersHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "name and email are required",
		})
		return
	}
	if len(req.Password) < 8 {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "password must be at least 8 characters",
		})
		return
	}

	user, token, session, err := h.UserService.Register(ctx, service.RegisterParams{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		InviteToken: req.InviteToken,
		UserAgent:   r.UserAgent(),
		IP:          clientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "email_taken",
				ErrorDescription: "Email is already registered",
			})
		case errors.Is(err, service.ErrInviteNotFound):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_invite",
				ErrorDescription: "Invite token is invalid or expired",
			})
		case errors.Is(err, service.ErrEmailMismatch):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "email_mismatch",
				ErrorDescription: "The invitation was issued for a different email",
			})
		default:
			slogx.FromContext(ctx).Error("signup failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	setSessionCookie(w, token, session.ExpiresAt, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusCreated, AuthResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

// HandleSignin godoc
//
//	@Summary	Sign in
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		request	body		SigninRequest	true	"Credentials"
//	@Success	200		{object}	AuthResponse
//	@Failure	401		{object}	ErrorResponse	"invalid credentials"
//	@Router		/v1/users/signin [post]
func (h *UsersHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	user, token, session, err := h.UserService.SignIn(ctx, req.Email, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "Invalid email or password",
			})
			return
		}
		slogx.FromContext(ctx).Error("signin failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	setSessionCookie(w, token, session.ExpiresAt, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

// HandleSignout godoc
//
//	@Summary	Sign out the current session
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	MessageResponse
//	@Security	BearerAuth
//	@Router		/v1/users/signout [post]
func (h *UsersHandler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.SessionService.Revoke(ctx, httpx.SessionIDFromCtx(ctx), httpx.UserIDFromCtx(ctx))
	if err != nil && !errors.Is(err, service.ErrSessionNotFound) {
		slogx.FromContext(ctx).Error("signout failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	clearSessionCookie(w, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Signed out"})
}

// HandleGetProfile godoc
//
//	@Summary	Get own profile
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	UserResponse
//	@Security	BearerAuth
//	@Router		/v1/users/profile [get]
func (h *UsersHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.UserService.Profile(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load profile", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdateProfile godoc
//
//	@Summary		Update own profile
//	@Description	Accepts JSON field updates, or multipart/form-data with an optional "avatar" file. The old avatar is removed after a successful swap.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpdateProfileRequest	true	"Profile fields"
//	@Success		200		{object}	UserResponse
//	@Security		BearerAuth
//	@Router			/v1/users/profile [patch]
func (h *UsersHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromCtx(ctx)

	var update store.ProfileUpdate

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Invalid multipart body",
			})
			return
		}
		update = store.ProfileUpdate{
			Name:       formValuePtr(r, "name"),
			Bio:        formValuePtr(r, "bio"),
			Batch:      formValuePtr(r, "batch"),
			Department: formValuePtr(r, "department"),
		}

		if file, header, err := r.FormFile("avatar"); err == nil {
			defer file.Close()
			if _, err := h.UserService.UpdateAvatar(ctx, userID, file, header.Filename); err != nil {
				slogx.FromContext(ctx).Error("avatar upload failed", slog.Any("error", err))
				httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:            "server_error",
					ErrorDescription: "Failed to upload avatar",
				})
				return
			}
		}
	} else {
		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Invalid JSON body",
			})
			return
		}
		update = store.ProfileUpdate{
			Name:       req.Name,
			Bio:        req.Bio,
			Batch:      req.Batch,
			Department: req.Department,
		}
	}

	user, err := h.UserService.UpdateProfile(ctx, userID, update)
	if err != nil {
		slogx.FromContext(ctx).Error("profile update failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Verifies the current password before swapping in the new one. Every session is revoked afterwards, including this one.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChangePasswordRequest	true	"Passwords"
//	@Success		200		{object}	MessageResponse
//	@Failure		401		{object}	ErrorResponse	"current password wrong"
//	@Security		BearerAuth
//	@Router			/v1/users/password [patch]
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if len(req.NewPassword) < 8 {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "password must be at least 8 characters",
		})
		return
	}

	err := h.UserService.ChangePassword(ctx, httpx.UserIDFromCtx(ctx), req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "Current password is incorrect",
			})
			return
		}
		slogx.FromContext(ctx).Error("password change failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	clearSessionCookie(w, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed, sign in again"})
}

// HandleForgotPassword godoc
//
//	@Summary	Request a password reset email
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ForgotPasswordRequest	true	"Account email"
//	@Success	200		{object}	MessageResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	502		{object}	ErrorResponse	"email delivery failed"
//	@Router		/v1/users/forgot-password [post]
func (h *UsersHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	err := h.UserService.ForgotPassword(ctx, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "No account with that email",
			})
		case errors.Is(err, service.ErrDeliveryFailed):
			httpx.WriteJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:            "delivery_failed",
				ErrorDescription: "Could not send the reset email, try again later",
			})
		default:
			slogx.FromContext(ctx).Error("forgot password failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Reset email sent"})
}

// HandleResetPassword godoc
//
//	@Summary		Reset password with an emailed token
//	@Description	Consumes the reset token and revokes every session.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string					true	"Reset token"
//	@Param			request	body		ResetPasswordRequest	true	"New password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"token invalid or expired"
//	@Router			/v1/users/reset-password/{token} [post]
func (h *UsersHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if len(req.Password) < 8 {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "password must be at least 8 characters",
		})
		return
	}

	err := h.UserService.ResetPassword(ctx, r.PathValue("token"), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "Reset token is invalid or expired",
			})
			return
		}
		slogx.FromContext(ctx).Error("password reset failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password reset, sign in again"})
}

// HandleDeleteAccount godoc
//
//	@Summary		Delete own account
//	@Description	Memberships and sessions go with the account.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Security		BearerAuth
//	@Router			/v1/users/account [delete]
func (h *UsersHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.UserService.DeleteAccount(ctx, httpx.UserIDFromCtx(ctx)); err != nil {
		slogx.FromContext(ctx).Error("account deletion failed", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	clearSessionCookie(w, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted"})
}

func formValuePtr(r *http.Request, key string) *string {
	if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
		return &vals[0]
	}
	return nil
}

// clientIP prefers proxy-provided headers, matching the rate limiter's view
// of the client.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		return host[:idx]
	}
	return host
}
