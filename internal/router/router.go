package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"adoptify-web/internal/config"
	"adoptify-web/internal/guard"
	"adoptify-web/internal/handler"
	"adoptify-web/internal/metrics"
	"adoptify-web/internal/middleware"
	"adoptify-web/internal/websocket"
)

type Handlers struct {
	Session  *handler.SessionHandler
	Pets     *handler.PetHandler
	Shelters *handler.ShelterHandler
	Adoption *handler.AdoptionHandler
	Admin    *handler.AdminHandler
	Health   *handler.HealthHandler
}

func New(cfg *config.Config, sessions *middleware.SessionMiddleware, hub *websocket.Hub, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Long-lived, so kept out of the request timeout.
	r.With(sessions.Handler).Get("/events", hub.ServeWS)

	r.Group(func(pages chi.Router) {
		pages.Use(middleware.Timeout(cfg.RequestTimeout))
		pages.Use(sessions.Handler)

		pages.Get("/", h.Session.Home)
		pages.Get("/pets", h.Pets.List)
		pages.Post("/login", h.Session.Login)
		pages.Post("/signup", h.Session.Signup)
		pages.Post("/logout", h.Session.Logout)
		pages.Get("/logout", h.Session.Logout)

		pages.Group(func(user chi.Router) {
			user.Use(middleware.RequirePolicy(guard.RequiresSession))

			user.Get("/pets/{id}", h.Pets.Get)
			user.Get("/profile", h.Session.Profile)
			user.Post("/favourites/{petID}", h.Adoption.AddFavourite)
			user.Delete("/favourites/{petID}", h.Adoption.RemoveFavourite)
			user.Post("/apply/{petID}", h.Adoption.Apply)
			user.Get("/shelters", h.Shelters.List)
			user.Post("/donate", h.Adoption.Donate)
		})

		pages.Group(func(admin chi.Router) {
			admin.Use(middleware.RequirePolicy(guard.RequiresAdmin))

			admin.Get("/admin-dashboard", h.Admin.Dashboard)
			admin.Route("/admin", func(ar chi.Router) {
				ar.Get("/pets", h.Pets.List)
				ar.Post("/pets", h.Pets.Create)
				ar.Put("/pets/{id}", h.Pets.Update)
				ar.Delete("/pets/{id}", h.Pets.Delete)

				ar.Get("/shelters", h.Shelters.List)
				ar.Post("/shelters", h.Shelters.Create)
				ar.Get("/shelters/{id}", h.Shelters.Get)
				ar.Put("/shelters/{id}", h.Shelters.Update)
				ar.Delete("/shelters/{id}", h.Shelters.Delete)

				ar.Get("/applications", h.Adoption.Applications)
				ar.Patch("/applications/{id}", h.Adoption.UpdateStatus)
			})
		})
	})

	return r
}
