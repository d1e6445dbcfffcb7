package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// SessionsHandler serves the per-device session list and revocation.
type SessionsHandler struct {
	SessionService *service.SessionService

	// CookieSecure marks the session cookie Secure; off only in dev.
	CookieSecure bool
}

// HandleList godoc
//
//	@Summary		List active sessions
//	@Description	Every live login for the account, newest first. The session backing this request is marked current.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{array}	SessionResponse
//	@Security		BearerAuth
//	@Router			/v1/sessions [get]
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.SessionService.ListActive(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list sessions", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	currentID := httpx.SessionIDFromCtx(ctx)
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, currentID))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke godoc
//
//	@Summary		Revoke one session
//	@Description	Signs out another device. Revoking an already-revoked session succeeds.
//	@Tags			Sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session id"
//	@Success		200			{object}	MessageResponse
//	@Failure		404			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/sessions/{sessionID} [delete]
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.SessionService.Revoke(ctx, r.PathValue("sessionID"), httpx.UserIDFromCtx(ctx))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Session not found",
			})
			return
		}
		slogx.FromContext(ctx).Error("failed to revoke session", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Session revoked"})
}

// HandleRevokeAll godoc
//
//	@Summary		Sign out everywhere
//	@Description	Revokes every live session of the account, including the one backing this request.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Security		BearerAuth
//	@Router			/v1/sessions [delete]
func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.SessionService.RevokeAll(ctx, httpx.UserIDFromCtx(ctx)); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke sessions", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	clearSessionCookie(w, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "All sessions revoked"})
}
