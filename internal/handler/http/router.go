package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	jwtService jwt.Service,
	leaveHandler LeaveHandler,
	approvalHandler ApprovalHandler,
	userHandler UserHandler,
	auditHandler AuditHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "lms-backend"),
		slog.String("version", "v1.0.0"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/users", func(r chi.Router) {
				r.Get("/{id}", userHandler.Get)
				r.Get("/{id}/balances", leaveHandler.GetUserBalances)

				// HR administration only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(user.RoleHRAdmin, user.RoleSystemAdmin))
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
					r.Put("/{id}/manager", userHandler.SetManager)
				})
			})

			r.Route("/leave", func(r chi.Router) {
				r.Route("/requests", func(r chi.Router) {
					r.Post("/", leaveHandler.CreateRequest)
					r.Get("/", leaveHandler.ListRequests)
					r.Get("/my", leaveHandler.GetMyRequests)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", leaveHandler.GetRequest)
						r.Post("/submit", leaveHandler.SubmitRequest)
						r.Post("/withdraw", leaveHandler.WithdrawRequest)
						r.Delete("/", leaveHandler.DeleteRequest)
						r.Get("/dates", leaveHandler.ListDates)
						r.Post("/comments", leaveHandler.AddComment)
						r.Get("/comments", leaveHandler.ListComments)
					})
				})

				r.Get("/balances/my", leaveHandler.GetMyBalances)
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Post("/steps/{id}/approve", approvalHandler.ApproveStep)
				r.Post("/steps/{id}/reject", approvalHandler.RejectStep)
			})

			// Auditors and administrators can read any entity's trail.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(user.RoleAuditor, user.RoleHRAdmin, user.RoleSystemAdmin))
				r.Get("/audit/{entityType}/{entityID}", auditHandler.ListForEntity)
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	return r
}
