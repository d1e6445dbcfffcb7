package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// InvitesHandler serves invitation creation and acceptance.
type InvitesHandler struct {
	InviteService *service.InviteService
}

// HandleInvite godoc
//
//	@Summary		Invite someone to a club
//	@Description	Admin or moderator only. If the email already has an account the user is added directly; otherwise an invitation email with a signup link goes out.
//	@Tags			Invites
//	@Accept			json
//	@Produce		json
//	@Param			clubID	path		string				true	"Club id"
//	@Param			request	body		InviteMemberRequest	true	"Invitee"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"invalid role"
//	@Failure		409		{object}	ErrorResponse	"already a member or invite pending"
//	@Failure		502		{object}	ErrorResponse	"invite recorded but email delivery failed"
//	@Security		BearerAuth
//	@Router			/v1/clubs/{clubID}/invite [post]
func (h *InvitesHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "email is required",
		})
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "role must be admin, moderator, or member",
		})
		return
	}

	directlyAdded, err := h.InviteService.Invite(ctx, r.PathValue("clubID"), req.Email, role, req.Designation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyMember):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "already_member",
				ErrorDescription: "User is already a member of this club",
			})
		case errors.Is(err, service.ErrInvitePending):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "invite_pending",
				ErrorDescription: "An invitation is already pending for this user",
			})
		case errors.Is(err, service.ErrDeliveryFailed):
			httpx.WriteJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:            "delivery_failed",
				ErrorDescription: "Invitation was recorded but the email could not be sent",
			})
		case errors.Is(err, service.ErrClubNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Club not found",
			})
		default:
			slogx.FromContext(ctx).Error("invite failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	if directlyAdded {
		httpx.WriteJSON(w, http.StatusOK, MessageResponse{
			Message: fmt.Sprintf("%s added as %s to the club", req.Email, role),
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Invitation sent to %s", req.Email),
	})
}

// HandleAccept godoc
//
//	@Summary		Accept an invitation
//	@Description	Consumes the invite token for the signed-in user. Accepting an invite for a club you already belong to cleans up the invite and succeeds.
//	@Tags			Invites
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AcceptInviteRequest	true	"Invite token"
//	@Success		200		{object}	MembershipResponse
//	@Failure		400		{object}	ErrorResponse	"token invalid or expired"
//	@Failure		403		{object}	ErrorResponse	"invite for a different email"
//	@Security		BearerAuth
//	@Router			/v1/invites/accept [post]
func (h *InvitesHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteToken == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "inviteToken is required",
		})
		return
	}

	membership, alreadyMember, err := h.InviteService.Redeem(ctx, httpx.UserIDFromCtx(ctx), req.InviteToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_invite",
				ErrorDescription: "Invite token is invalid or expired",
			})
		case errors.Is(err, service.ErrEmailMismatch):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "email_mismatch",
				ErrorDescription: "This invitation is not for your email",
			})
		default:
			slogx.FromContext(ctx).Error("invite acceptance failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	if alreadyMember {
		httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "You are already a member of this club"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toMembershipResponse(membership))
}
