package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chatq/assist-backend/internal/api/handlers"
	appMiddleware "github.com/chatq/assist-backend/internal/api/middlewares"
	"github.com/chatq/assist-backend/internal/config"
	"github.com/chatq/assist-backend/internal/services"
)

// Handlers bundles the services the router exposes.
type Handlers struct {
	Chat      *services.ChatService
	Faqs      *services.FaqService
	Documents *services.DocumentService
	Tickets   *services.TicketService
	Users     *services.UserService
}

// Server wraps the HTTP server instance and its routes.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds and wires all routes: public widget endpoints behind
// the tenant header middleware, admin endpoints behind JWT.
func NewServer(cfg *config.Config, logger *slog.Logger, h *Handlers) *Server {
	chatHandler := handlers.NewChatHandler(h.Chat, h.Tickets, logger)
	faqHandler := handlers.NewFaqHandler(h.Faqs, logger)
	docHandler := handlers.NewDocumentHandler(h.Documents, logger)
	authHandler := handlers.NewAuthHandler(h.Users, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		// Public widget endpoints, tenant from header.
		api.Group(func(public chi.Router) {
			public.Use(appMiddleware.Tenant)
			public.Post("/chat", chatHandler.Chat)
			public.Post("/chat/stream", chatHandler.ChatStream)
			public.Get("/chat/history/{sessionId}", chatHandler.History)
			public.Post("/chat/handoff", chatHandler.Handoff)
		})

		api.Post("/auth/register", authHandler.Register)
		api.Post("/auth/login", authHandler.Login)

		// Admin endpoints, tenant from token claims.
		api.Group(func(admin chi.Router) {
			admin.Use(appMiddleware.JWT(h.Users))

			admin.Route("/faqs", func(faqs chi.Router) {
				faqs.Post("/", faqHandler.Create)
				faqs.Post("/batch", faqHandler.CreateBatch)
				faqs.Get("/", faqHandler.List)
				faqs.Get("/{id}", faqHandler.Get)
				faqs.Put("/{id}", faqHandler.Update)
				faqs.Delete("/{id}", faqHandler.Delete)
			})

			admin.Route("/documents", func(docs chi.Router) {
				docs.Post("/upload", docHandler.Upload)
				docs.Post("/url", docHandler.IngestURL)
				docs.Get("/", docHandler.List)
				docs.Get("/{id}", docHandler.Get)
				docs.Delete("/{id}", docHandler.Delete)
			})
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, log: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
