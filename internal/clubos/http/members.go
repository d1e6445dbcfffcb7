package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// MembersHandler serves the membership roll of a club. Every route is behind
// RequireClubRole, so the club is already resolved and the caller's role
// already vetted by the time these run.
type MembersHandler struct {
	ClubService *service.ClubService
}

// HandleList godoc
//
//	@Summary		List club members
//	@Description	Admin or moderator only.
//	@Tags			Members
//	@Produce		json
//	@Param			clubID	path	string	true	"Club id"
//	@Success		200		{array}	MemberResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/clubs/{clubID}/members [get]
func (h *MembersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	members, err := h.ClubService.Members(ctx, r.PathValue("clubID"))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list members", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleUpdate godoc
//
//	@Summary		Change a member's role or designation
//	@Description	Admin only. Demoting the club's last admin is refused.
//	@Tags			Members
//	@Accept			json
//	@Produce		json
//	@Param			clubID		path		string				true	"Club id"
//	@Param			memberID	path		string				true	"Member user id"
//	@Param			request		body		UpdateMemberRequest	true	"New role and/or designation"
//	@Success		200			{object}	MembershipResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse	"last admin"
//	@Security		BearerAuth
//	@Router			/v1/clubs/{clubID}/members/{memberID} [patch]
func (h *MembersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if req.Role == nil && req.Designation == nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "nothing to update",
		})
		return
	}

	var role *domain.Role
	if req.Role != nil {
		parsed, ok := domain.ParseRole(*req.Role)
		if !ok {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "role must be admin, moderator, or member",
			})
			return
		}
		role = &parsed
	}

	membership, err := h.ClubService.UpdateMember(
		ctx,
		r.PathValue("clubID"),
		httpx.UserIDFromCtx(ctx),
		r.PathValue("memberID"),
		role,
		req.Designation,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Member not found",
			})
		case errors.Is(err, service.ErrLastAdmin):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "last_admin",
				ErrorDescription: "Club must retain at least one admin",
			})
		default:
			slogx.FromContext(ctx).Error("member update failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toMembershipResponse(membership))
}

// HandleRemove godoc
//
//	@Summary		Remove a member
//	@Description	Admin only. Admins cannot remove themselves.
//	@Tags			Members
//	@Produce		json
//	@Param			clubID		path		string	true	"Club id"
//	@Param			memberID	path		string	true	"Member user id"
//	@Success		200			{object}	MessageResponse
//	@Failure		403			{object}	ErrorResponse	"self removal"
//	@Failure		404			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/clubs/{clubID}/members/{memberID} [delete]
func (h *MembersHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.ClubService.RemoveMember(ctx, r.PathValue("clubID"), httpx.UserIDFromCtx(ctx), r.PathValue("memberID"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotRemoveSelf):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "cannot_remove_self",
				ErrorDescription: "You cannot remove yourself from the club",
			})
		case errors.Is(err, service.ErrMemberNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Member not found",
			})
		default:
			slogx.FromContext(ctx).Error("member removal failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Member removed"})
}
