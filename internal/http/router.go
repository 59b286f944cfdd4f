package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/MrJamesThe3rd/supiri/internal/http/customer"
	"github.com/MrJamesThe3rd/supiri/internal/http/draft"
	"github.com/MrJamesThe3rd/supiri/internal/http/item"
	"github.com/MrJamesThe3rd/supiri/internal/http/sale"
)

type Options struct {
	Timeout        time.Duration
	AllowedOrigins []string
	RateLimit      int // requests per minute per client IP, 0 disables
}

func New(
	opts Options,
	customersV1 *customer.Handler,
	itemsV1 *item.Handler,
	salesV1 *sale.Handler,
	draftsV1 *draft.Handler,
) http.Handler {
	router := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := secureMiddleware.Process(w, r); err != nil {
				slog.Warn("secure headers blocked request", "error", err)
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

				return
			}

			next.ServeHTTP(w, r)
		})
	})

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	if opts.RateLimit > 0 {
		router.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			customersV1.Routes(r)
		})

		r.Route("/items", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			itemsV1.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			salesV1.Routes(r)
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			draftsV1.Routes(r)
		})
	})

	return router
}
