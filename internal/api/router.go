package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/splitfair/splitfair/internal/api/handlers"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/config"
	"github.com/splitfair/splitfair/internal/metrics"
	"github.com/splitfair/splitfair/internal/middleware"
	"github.com/splitfair/splitfair/internal/services"
)

type RouterDeps struct {
	Cfg         config.Config
	Tokens      *auth.TokenManager
	Users       *services.UserService
	Groups      *services.GroupService
	Expenses    *services.ExpenseService
	Settlements *services.SettlementService
	Balances    *services.BalanceService
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(deps.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(deps.Tokens, deps.Users)
	userH := handlers.NewUserHandler(deps.Users)
	groupH := handlers.NewGroupHandler(deps.Groups)
	expenseH := handlers.NewExpenseHandler(deps.Expenses, deps.Settlements)
	balanceH := handlers.NewBalanceHandler(deps.Balances)
	authMW := middleware.NewAuthMiddleware(deps.Tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)

			r.Get("/users/me", userH.Me)
			r.Get("/users/{id}", userH.Get)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", groupH.Create)
				r.Get("/", groupH.List)
				r.Get("/{id}", groupH.Get)
				r.Put("/{id}", groupH.Update)
				r.Delete("/{id}", groupH.Delete)
				r.Get("/{id}/members", groupH.ListMembers)
				r.Post("/{id}/members", groupH.AddMember)
				r.Delete("/{id}/members/{userID}", groupH.RemoveMember)
				r.Get("/{id}/balances", groupH.Balances)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", expenseH.Create)
				r.Get("/", expenseH.List)
				r.Get("/{id}", expenseH.Get)
				r.Put("/{id}", expenseH.Update)
				r.Delete("/{id}", expenseH.Delete)
				r.Get("/{id}/splits", expenseH.Splits)
				r.Post("/{id}/settle", expenseH.Settle)
			})

			r.Post("/splits/{id}/settle", expenseH.SettleSplit)

			r.Get("/balances", balanceH.Me)
		})
	})

	return r
}
