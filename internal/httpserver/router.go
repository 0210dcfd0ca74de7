package httpserver

import (
	"net/http"

	"metatradex/internal/admin"
	"metatradex/internal/approval"
	"metatradex/internal/assets"
	"metatradex/internal/auth"
	"metatradex/internal/funding"
	"metatradex/internal/health"
	"metatradex/internal/history"
	"metatradex/internal/httputil"
	"metatradex/internal/marketdata"
	"metatradex/internal/trading"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler     *auth.Handler
	AssetsHandler   *assets.Handler
	TradingHandler  *trading.Handler
	FundingHandler  *funding.Handler
	HistoryHandler  *history.Handler
	MarketHandler   *marketdata.Handler
	AdminHandler    *admin.Handler
	HealthHandler   *health.Handler
	ApproveEndpoint *approval.Endpoint
	AuthService     *auth.Service
	JWTSecret       string
	QuoteWS         http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Internal-Token")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)
	r.Get("/health/full", d.HealthHandler.Full)
	r.Get("/metrics", d.HealthHandler.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		r.Get("/market/assets", d.MarketHandler.ListAssets)
		r.Get("/market/assets/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			d.MarketHandler.GetAsset(w, r, chi.URLParam(r, "symbol"))
		})
		r.Get("/market/ws", d.QuoteWS.ServeHTTP)
		r.Get("/trade-settings", d.TradingHandler.Settings)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.AuthHandler.Me(w, r, userID)
			})
			r.Post("/kyc", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.AuthHandler.SubmitKYC(w, r, userID)
			})
			r.Get("/balances", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.AssetsHandler.Balances(w, r, userID)
			})
			r.Post("/swap", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.AssetsHandler.Swap(w, r, userID)
			})
			r.Post("/trades", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradingHandler.Place(w, r, userID)
			})
			r.Get("/trades", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradingHandler.List(w, r, userID)
			})
			r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.HistoryHandler.List(w, r, userID)
			})
			r.Post("/deposits", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.FundingHandler.CreateDeposit(w, r, userID)
			})
			r.Get("/deposits", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.FundingHandler.ListDeposits(w, r, userID)
			})
			r.Post("/withdrawals", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.FundingHandler.CreateWithdrawal(w, r, userID)
			})
			r.Get("/withdrawals", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.FundingHandler.ListWithdrawals(w, r, userID)
			})
		})

		// The privileged review endpoint carries its own bearer checks:
		// the internal service token or an admin token both work.
		r.Post("/internal/approve", d.ApproveEndpoint.ServeHTTP)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", d.AdminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(admin.AdminAuthMiddleware(d.JWTSecret))
				r.Get("/me", d.AdminHandler.Me)
				r.Get("/users", d.AdminHandler.ListUsers)
				r.Get("/users/{userID}/balances", d.AdminHandler.GetUserBalances)
				r.Put("/users/{userID}/balances", d.AdminHandler.SetUserBalance)
				r.Post("/users/{userID}/balances", d.AdminHandler.AddUserBalance)
				r.Put("/users/{userID}/override", d.AdminHandler.SetOverride)
				r.Post("/users/{userID}/kyc", d.AdminHandler.ReviewKYC)
				r.Get("/deposits", d.AdminHandler.ListDeposits)
				r.Get("/withdrawals", d.AdminHandler.ListWithdrawals)
				r.Post("/requests/{table}/{id}/review", d.AdminHandler.ReviewRequest)
				r.Get("/trade-settings", d.AdminHandler.ListTradeSettings)
				r.Put("/trade-settings/{id}", d.AdminHandler.UpdateTradeSetting)
			})
		})
	})
	return r
}
