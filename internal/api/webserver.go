package api

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/mortality.report/internal/metrics"
)

//go:embed static
var staticFiles embed.FS

// AdminAttacher mounts debug routes on a mux. *db.DB implements it.
type AdminAttacher interface {
	AttachAdminRoutes(mux *http.ServeMux)
}

// WebServer wraps the API with metrics, static files and graceful shutdown.
type WebServer struct {
	address string
	server  *http.Server
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	API     *Server
	// Admin is optional; when set its debug routes are mounted under /debug/.
	Admin AdminAttacher
	// StaticDir serves the landing page from disk instead of the embedded
	// copy, for iterating without a rebuild.
	StaticDir string
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{address: config.Address}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           LoggingMiddleware(Routes(config)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

// Routes assembles the full handler tree without starting a listener.
func Routes(config WebServerConfig) *http.ServeMux {
	mux := config.API.ServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if config.Admin != nil {
		config.Admin.AttachAdminRoutes(mux)
	}

	var staticHandler http.Handler
	if config.StaticDir != "" {
		staticHandler = http.FileServer(http.Dir(config.StaticDir))
	} else {
		sub, err := fs.Sub(staticFiles, "static")
		if err != nil {
			log.Fatalf("failed to open embedded static files: %v", err)
		}
		staticHandler = http.FileServer(http.FS(sub))
	}
	mux.Handle("/", staticHandler)
	return mux
}

// Handler returns the server's root handler.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}
