package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/httpx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"

	_ "github.com/Fahimkhan9/clubos/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookieSecure bool

	store          store.Store
	SessionService *service.SessionService
	UserService    *service.UserService
	ClubService    *service.ClubService
	InviteService  *service.InviteService
}

func NewRouter(buildVersion string, cookieSecure bool, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		cookieSecure: cookieSecure,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerSessions()
	r.registerClubs()
	r.registerMembers()
	r.registerInvites()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			ClubOS API
//	@version		0.1.0
//	@description	Membership management backend for organizational clubs: accounts, sessions, clubs, role-scoped membership, and email invitations.
//
//	@contact.name	ClubOS
//	@contact.url	https://github.com/Fahimkhan9/clubos
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}". Browsers get the same token as an HttpOnly cookie.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		UserService:    r.UserService,
		SessionService: r.SessionService,
		CookieSecure:   r.cookieSecure,
	}
	auth := RequireAuth(r.SessionService)

	// Credential endpoints are strict-limited by IP against brute force.
	r.Mux.Handle("POST /v1/users/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/users/signin",
		httpx.Chain(http.HandlerFunc(h.HandleSignin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/users/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/users/reset-password/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/users/signout",
		httpx.Chain(http.HandlerFunc(h.HandleSignout),
			auth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/users/profile",
		httpx.Chain(http.HandlerFunc(h.HandleGetProfile),
			auth,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/users/profile",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateProfile),
			auth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/users/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			auth,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/account",
		httpx.Chain(http.HandlerFunc(h.HandleDeleteAccount),
			auth,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService, CookieSecure: r.cookieSecure}
	auth := RequireAuth(r.SessionService)

	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			auth,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeAll),
			auth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions/{sessionID}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			auth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerClubs() {
	h := &ClubsHandler{ClubService: r.ClubService}
	auth := RequireAuth(r.SessionService)

	r.Mux.Handle("POST /v1/clubs",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			auth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/clubs/my",
		httpx.Chain(http.HandlerFunc(h.HandleListMine),
			auth,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/clubs/{clubID}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			auth,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Mutations are gated on club role; the guard resolves the club and the
	// caller's standing before the handler runs.
	r.Mux.Handle("PATCH /v1/clubs/{clubID}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			auth,
			RequireClubRole(r.ClubService, domain.RoleAdmin, domain.RoleModerator),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/clubs/{clubID}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			auth,
			RequireClubRole(r.ClubService, domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMembers() {
	h := &MembersHandler{ClubService: r.ClubService}
	auth := RequireAuth(r.SessionService)

	r.Mux.Handle("GET /v1/clubs/{clubID}/members",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			auth,
			RequireClubRole(r.ClubService, domain.RoleAdmin, domain.RoleModerator),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/clubs/{clubID}/members/{memberID}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			auth,
			RequireClubRole(r.ClubService, domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/clubs/{clubID}/members/{memberID}",
		httpx.Chain(http.HandlerFunc(h.HandleRemove),
			auth,
			RequireClubRole(r.ClubService, domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{InviteService: r.InviteService}
	auth := RequireAuth(r.SessionService)

	r.Mux.Handle("POST /v1/clubs/{clubID}/invite",
		httpx.Chain(http.HandlerFunc(h.HandleInvite),
			auth,
			RequireClubRole(r.ClubService, domain.RoleAdmin, domain.RoleModerator),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/invites/accept",
		httpx.Chain(http.HandlerFunc(h.HandleAccept),
			auth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
