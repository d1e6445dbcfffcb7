package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeySessionID ctxKey = "session_id"
	CtxKeyClub      ctxKey = "club"      // resolved club, set by the club-role guard
	CtxKeyClubRole  ctxKey = "club_role" // actor's role in that club
)

// UserIDFromCtx returns the authenticated user's id, or "" when the request
// did not pass authentication middleware.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromCtx returns the id of the session backing this request.
func SessionIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}
