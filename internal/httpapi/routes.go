package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Round  Round
	Store  Store
	WS     http.Handler
	Logger *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	if d.WS != nil {
		r.Get("/ws", d.WS.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/round", RoundSnapshot(d.Round, log))

		r.Route("/games", func(r chi.Router) {
			r.Get("/gamestatus", GameStatus(d.Store, log))
			r.Post("/setgamestatus", SetGameStatus(d.Store, log))
			r.Post("/analytics", GameAnalytics(d.Store, log))
		})
		r.Route("/bids", func(r chi.Router) {
			r.Post("/session", BidsBySession(d.Store, log))
			r.Post("/user", BidsByUser(d.Store, log))
		})
		r.Get("/wallet/balance/{userID}", WalletBalance(d.Store, log))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/warnings", Warnings(d.Round, log))
			r.Post("/outcome", OverrideOutcome(d.Round, log))
		})
	})
	return r
}
