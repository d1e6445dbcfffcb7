package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// SessionCookie is the browser-side bearer cookie name.
const SessionCookie = "token"

// bearerToken pulls the session token from the Authorization header or,
// failing that, the session cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth authenticates the request's bearer token and puts the user and
// session ids on the context. Expired and revoked sessions get distinct error
// codes so clients can tell a stale login from a forced logout.
func RequireAuth(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, session, err := sessions.Authenticate(ctx, bearerToken(r))
			if err != nil {
				switch {
				case errors.Is(err, service.ErrSessionExpired):
					httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
						Error:            "session_expired",
						ErrorDescription: "Session has expired, sign in again",
					})
				case errors.Is(err, service.ErrSessionRevoked):
					httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
						Error:            "session_revoked",
						ErrorDescription: "Session has been revoked, sign in again",
					})
				case errors.Is(err, service.ErrUnauthenticated):
					httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
						Error:            "unauthorized",
						ErrorDescription: "Authentication required",
					})
				default:
					slogx.FromContext(ctx).Error("authentication failed", slog.Any("error", err))
					httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error: "server_error",
					})
				}
				return
			}

			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, user.ID)
			ctx = context.WithValue(ctx, httpx.CtxKeySessionID, session.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireClubRole resolves the caller's role in the club named by the request
// and refuses anyone whose role is not in the allow list. The club id comes
// from the URL path first, then the form body, then the query string. The
// resolved club and role ride the context so handlers don't re-fetch.
//
// Every role check in the service funnels through here; handlers never
// compare roles themselves.
func RequireClubRole(clubs *service.ClubService, allowed ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			clubID := clubIDFromRequest(r)
			if clubID == "" {
				httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
					Error:            "invalid_request",
					ErrorDescription: "club id is required",
				})
				return
			}

			club, err := clubs.Get(ctx, clubID)
			if err != nil {
				if errors.Is(err, service.ErrClubNotFound) {
					httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
						Error:            "not_found",
						ErrorDescription: "Club not found",
					})
					return
				}
				slogx.FromContext(ctx).Error("failed to resolve club", slog.Any("error", err))
				httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
				return
			}

			role, err := clubs.ResolveRole(ctx, clubID, httpx.UserIDFromCtx(ctx))
			if err != nil {
				if errors.Is(err, service.ErrNotClubMember) {
					httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
						Error:            "not_a_member",
						ErrorDescription: "You are not a member of this club",
					})
					return
				}
				slogx.FromContext(ctx).Error("failed to resolve role", slog.Any("error", err))
				httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
				return
			}

			if !role.In(allowed...) {
				httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
					Error:            "insufficient_role",
					ErrorDescription: "Your role does not permit this action",
				})
				return
			}

			ctx = context.WithValue(ctx, httpx.CtxKeyClub, club)
			ctx = context.WithValue(ctx, httpx.CtxKeyClubRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clubIDFromRequest(r *http.Request) string {
	if id := r.PathValue("clubID"); id != "" {
		return id
	}
	if id := r.PostFormValue("clubId"); id != "" {
		return id
	}
	return r.URL.Query().Get("clubId")
}
