package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mrpasztoradam/goadssec"
	_ "github.com/mrpasztoradam/goadssec/docs" // Import generated docs
	"github.com/mrpasztoradam/goadssec/internal/ams"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Server represents the HTTP server
type Server struct {
	config     *Config
	middleware *Middleware
	handler    *Handler
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(config *Config) (*Server, error) {
	plcNetID, err := ams.ParseNetID(config.PLC.AMSNetID)
	if err != nil {
		return nil, fmt.Errorf("invalid PLC AMS Net ID: %w", err)
	}

	sourceNetID, err := ams.ParseNetID(config.PLC.SourceNetID)
	if err != nil {
		return nil, fmt.Errorf("invalid source AMS Net ID: %w", err)
	}

	opts := []goadssec.Option{
		goadssec.WithTarget(config.PLC.Target),
		goadssec.WithAMSNetID(plcNetID),
		goadssec.WithSourceNetID(sourceNetID),
		goadssec.WithAMSPort(ams.Port(config.PLC.AMSPort)),
		goadssec.WithConnectTimeout(config.Timeout()),
		goadssec.WithRequestTimeout(config.Timeout()),
	}

	secureConfig, err := buildSecureConfig(&config.PLC.Secure)
	if err != nil {
		return nil, err
	}
	if secureConfig != nil {
		opts = append(opts, goadssec.WithSecureConfig(secureConfig))
	}

	client, err := goadssec.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ADS client: %w", err)
	}

	mw := NewMiddleware(client, config)
	h := NewHandler(mw)

	s := &Server{
		config:     config,
		middleware: mw,
		handler:    h,
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// CORS
	if s.config.Server.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.Server.CORS.AllowedOrigins,
			AllowedMethods:   s.config.Server.CORS.AllowedMethods,
			AllowedHeaders:   s.config.Server.CORS.AllowedHeaders,
			AllowCredentials: s.config.Server.CORS.AllowCredentials,
			MaxAge:           300,
		}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.HandleHealth)
		r.Get("/info", s.handler.HandleInfo)
		r.Get("/version", s.handler.HandleGetVersion)

		r.Get("/device", s.handler.HandleDeviceInfo)
		r.Get("/state", s.handler.HandleGetState)
	})

	// WebSocket endpoint
	r.Get("/ws/state", s.handler.HandleWebSocket)

	// Swagger UI
	r.Get("/swagger-ui/*", httpSwagger.WrapHandler)

	// Root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"GoADS Secure HTTP/WebSocket API","version":"1.0","docs":"/swagger-ui/index.html","websocket":"/ws/state"}`)
	})

	s.router = r
}

// buildSecureConfig maps the YAML secure block onto the library's config.
func buildSecureConfig(sc *SecureConfig) (*goadssec.SecureConfig, error) {
	switch sc.Mode {
	case "":
		return nil, nil

	case "self-signed":
		keypair, err := loadKeypair(sc.CertFile, sc.KeyFile)
		if err != nil {
			return nil, err
		}
		out := goadssec.SelfSigned(keypair)
		if sc.Username != "" {
			out = out.WithRouteRegistration(sc.Username, sc.Password)
		}
		if sc.IgnoreCN {
			out = out.WithIgnoreCN()
		}
		if sc.IPAddr {
			out = out.WithIPAddr()
		}
		if sc.Hostname != "" {
			out = out.WithHostname(sc.Hostname)
		}
		return out, nil

	case "shared-ca":
		keypair, err := loadKeypair(sc.CertFile, sc.KeyFile)
		if err != nil {
			return nil, err
		}
		pool, err := loadCertPool(sc.CAFile)
		if err != nil {
			return nil, err
		}
		out := goadssec.SharedCA(keypair, pool)
		if sc.Hostname != "" {
			out = out.WithHostname(sc.Hostname)
		}
		return out, nil

	case "psk":
		var out *goadssec.SecureConfig
		var err error
		if sc.PSKKeyHex != "" {
			out, err = goadssec.PreSharedKeyHex(sc.PSKIdentity, sc.PSKKeyHex)
		} else {
			out, err = goadssec.PreSharedKeyPassword(sc.PSKIdentity, sc.PSKPassword)
		}
		if err != nil {
			return nil, err
		}
		if sc.Hostname != "" {
			out = out.WithHostname(sc.Hostname)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("invalid secure mode: %s", sc.Mode)
	}
}

// Start connects to the PLC and starts the HTTP server
func (s *Server) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout())
	defer cancel()
	if err := s.middleware.Connect(ctx); err != nil {
		// Degraded start: the health endpoint reports the state, and
		// requests fail until the target comes back.
		log.Printf("PLC connect failed, starting degraded: %v", err)
	}

	log.Printf("Starting server on %s", s.config.Address())
	log.Printf("PLC Target: %s (secure mode: %q)", s.config.PLC.Target, s.config.PLC.Secure.Mode)
	log.Printf("API endpoints available at http://%s/api/v1", s.config.Address())

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	if err := s.middleware.Close(); err != nil {
		log.Printf("ADS client close: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// Router returns the chi router (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
