package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/response"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// Actor is the authenticated caller, decoded from the access token.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	Role           user.Role
}

type actorContextKey struct{}

// ActorFromContext returns the actor stashed by AuthRequired.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(*Actor)
	return actor, ok
}

// AuditContext builds the audit context for one request: actor identity
// from the token, provenance from the request itself.
func (a *Actor) AuditContext(r *http.Request) audit.Context {
	actorID := a.UserID
	organizationID := a.OrganizationID

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	return audit.Context{
		ActorID:        &actorID,
		ActorType:      audit.ActorUser,
		ActorIP:        ip,
		ActorUserAgent: r.UserAgent(),
		OrganizationID: &organizationID,
		RequestID:      chiMiddleware.GetReqID(r.Context()),
	}
}

// AuthRequired rejects requests without a valid access token and stashes
// the decoded actor into the request context.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.Unauthorized(w, "missing access token")
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.Unauthorized(w, "invalid access token")
				return
			}
			tokenType, ok := claims["type"].(string)
			if !ok || tokenType != "access" {
				response.Unauthorized(w, "invalid access token")
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				response.Unauthorized(w, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// RequireRole allows only the listed roles past.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "missing access token")
				return
			}
			if !allowed[actor.Role] {
				response.Forbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

func actorFromClaims(claims map[string]interface{}) (*Actor, error) {
	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}

	organizationIDStr, _ := claims["organization_id"].(string)
	organizationID, err := uuid.Parse(organizationIDStr)
	if err != nil {
		return nil, err
	}

	email, _ := claims["email"].(string)
	roleStr, _ := claims["role"].(string)

	return &Actor{
		UserID:         userID,
		OrganizationID: organizationID,
		Email:          email,
		Role:           user.Role(roleStr),
	}, nil
}
