package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/labportal/portal/frontend/internal/middleware"
	"github.com/labportal/portal/frontend/internal/setup"
	mw "github.com/labportal/portal/shared/middleware"
	"github.com/labportal/portal/shared/middleware/metrics"
	rl "github.com/labportal/portal/shared/middleware/ratelimiter"
)

// composerCSP is strict: the composer API only returns JSON.
const composerCSP = "default-src 'none'; frame-ancestors 'none'"

// addressShare scales the per-author budget into the per-address one.
const addressShare = 4

// SetupRouter wires the composer API. Rate limiters attached with Use count requests
// for every route of that group together.
func SetupRouter(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()
	sec := deps.Public.Security

	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   sec.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.CSRFHeader},
		ExposedHeaders:   []string{middleware.CSRFHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeaders(sec.SecureCookies, composerCSP))

	h := deps.Handler
	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/compose/{board}", func(r chi.Router) {
		// per address before auth, so rejected tokens are limited too; an address may
		// carry several authors behind a lab NAT
		r.Use(mw.RateLimit(rl.New(addressShare*sec.RequestsPerSec, addressShare*sec.Burst, time.Hour), mw.GetIP))
		r.Use(deps.Auth.NeedAuth())
		r.Use(mw.RateLimit(rl.New(sec.RequestsPerSec, sec.Burst, time.Hour), mw.GetUserIDFromContext))
		r.Use(middleware.GenerateCSRFToken(middleware.CSRFConfig{SecureCookies: sec.SecureCookies}))
		r.Use(middleware.ValidateCSRFToken())

		r.Get("/", h.OpenComposer)
		r.Delete("/", h.Discard)
		r.Put("/fields", h.UpdateFields)
		r.Post("/save", h.SaveDraft)
		r.Post("/publish", h.Publish)
		r.Post("/unload", h.Unload)
		r.Delete("/recovered", h.DismissRecovered)
		r.Get("/uploads", h.UploadProgress)

		r.Get("/attachments", h.ListAttachments)
		r.Post("/attachments", h.UploadAttachments)
		r.Delete("/attachments/{id}", h.DeleteAttachment)
	})

	return r
}
