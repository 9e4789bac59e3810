package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"bloom-backend/internal/handlers"
	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/websocket"
)

func New(
	log *logger.Logger,
	jwtAuth *middleware.JWTAuth,
	identity middleware.IdentityResolver,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	galleryHandler *handlers.GalleryHandler,
	bookingHandler *handlers.BookingHandler,
	contactHandler *handlers.ContactHandler,
	wsHub *websocket.Hub,
	uploadsDir string,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	chatLimiter := middleware.NewRateLimiter(30, time.Minute)
	contactLimiter := middleware.NewRateLimiter(5, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Gallery files of the local storage backend.
	if uploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Public site ────
		r.With(chatLimiter.Middleware).Post("/chat", chatHandler.Send)
		r.Get("/gallery", galleryHandler.List)
		r.With(contactLimiter.Middleware).Post("/contact", contactHandler.Create)

		// ──── WebSocket (authenticates via query token) ────
		r.Get("/ws", wsHub.HandleWebSocket)

		// ──── Signed-in customers ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", authHandler.Me)
			r.Post("/bookings", bookingHandler.Create)
			r.Get("/bookings/mine", bookingHandler.Mine)
		})

		// ──── Admin ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireAdmin(identity))

			r.Get("/bookings", bookingHandler.ListAll)
			r.Get("/gallery", galleryHandler.ListAll)
			r.Post("/gallery", galleryHandler.Upload)
			r.Delete("/gallery/{id}", galleryHandler.Delete)
			r.Put("/users/{id}/role", authHandler.SetRole)
		})
	})

	return r
}
