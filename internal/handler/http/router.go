package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/store-market/internal/auth"
)

type RouteRegistrar interface {
	RegisterRoutes(router chi.Router)
}

func NewRouter(issuer *auth.Issuer, handlers ...RouteRegistrar) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(auth.Middleware(issuer))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	return router
}
