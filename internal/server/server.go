// Package server exposes the builder over HTTP: a JSON API for the section
// store and template catalog, design export and import, the rendered
// preview, and a WebSocket that streams store events and carries drag and
// property-editor gestures.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/pagebuilder/internal/catalog"
	"github.com/conneroisu/pagebuilder/internal/config"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/preview"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/transfer"
	"github.com/conneroisu/pagebuilder/internal/validation"
	"github.com/conneroisu/pagebuilder/internal/watcher"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder replaces the store the server creates by default.
func WithBuilder(builder store.Builder) Option {
	return func(s *Server) {
		if builder != nil {
			s.builder = builder
		}
	}
}

// WithCatalog replaces the built-in catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) {
		if c != nil {
			s.catalog = c
		}
	}
}

// Server serves the builder API, the preview and live updates.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	builder  store.Builder
	catalog  *catalog.Catalog
	renderer *preview.Renderer
	pipeline *transfer.Pipeline
	watcher  *watcher.FileWatcher

	httpServer  *http.Server
	serverMutex sync.RWMutex

	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *Client
	unsubscribe  func()

	shutdownOnce sync.Once
}

// New creates a server for cfg. The store and catalog are created from the
// configuration unless supplied with options.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: nil configuration")
	}

	s := &Server{
		config:     cfg,
		logger:     logging.Nop(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")

	if s.builder == nil {
		s.builder = store.New(
			store.WithLogger(s.logger),
			store.WithMetadata(cfg.Metadata()),
		)
	}
	if s.catalog == nil {
		s.catalog = catalog.New(s.logger)
	}
	s.renderer = preview.NewRenderer(s.logger)
	s.pipeline = transfer.NewPipeline(s.builder,
		transfer.WithMaxSize(cfg.Import.MaxFileSize),
		transfer.WithLogger(s.logger),
	)

	return s, nil
}

// Builder returns the store behind the server.
func (s *Server) Builder() store.Builder { return s.builder }

// Catalog returns the template catalog.
func (s *Server) Catalog() *catalog.Catalog { return s.catalog }

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /api/sections", s.handleState)
	mux.HandleFunc("POST /api/sections", s.handleAddSection)
	mux.HandleFunc("POST /api/sections/reorder", s.handleReorder)
	mux.HandleFunc("PATCH /api/sections/{id}", s.handleUpdateSection)
	mux.HandleFunc("DELETE /api/sections/{id}", s.handleDeleteSection)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	mux.HandleFunc("GET /preview", s.handlePreview)
	mux.HandleFunc("GET /preview/sections/{id}", s.handlePreviewSection)
	mux.HandleFunc("GET /static/preview.js", s.handleScript)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/preview", http.StatusFound)
	})

	return s.addMiddleware(mux)
}

// Run starts the background parts of the server: the WebSocket hub, the
// store subscription and the configured file watchers. It returns once
// they are running; they stop with ctx or Shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.unsubscribe = s.builder.Subscribe(s.onStoreEvent)
	go s.runWebSocketHub(ctx)

	s.loadInitialFiles(ctx)

	return s.setupFileWatcher(ctx)
}

// Start runs the server and blocks until the listener stops.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Run(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	url := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "Preview server listening", "url", url)

	if s.config.Server.Open {
		go s.openBrowser(ctx, url)
	}

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) openBrowser(ctx context.Context, url string) {
	time.Sleep(100 * time.Millisecond)

	if err := validation.ValidateURL(url); err != nil {
		s.logger.Warn(ctx, err, "Browser open failed due to invalid URL")
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser")
	}
}

func (s *Server) addMiddleware(handler http.Handler) http.Handler {
	secured := SecurityMiddleware(SecurityConfigFromAppConfig(s.config, s.logger))(handler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Filename")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		secured.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// isAllowedOrigin checks if the origin is in the allowed origins list
func (s *Server) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}

	return false
}

// Shutdown stops the watchers, closes every WebSocket and shuts the HTTP
// server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "stopping file watcher")
			}
		}

		s.clientsMutex.Lock()
		clients := make([]*Client, 0, len(s.clients))
		for client := range s.clients {
			clients = append(clients, client)
		}
		s.clients = make(map[*Client]struct{})
		s.clientsMutex.Unlock()
		for _, client := range clients {
			client.close()
		}

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *Server) broadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal broadcast")
		return
	}

	select {
	case s.broadcast <- data:
	default:
		s.logger.Warn(context.Background(), nil, "broadcast queue full, dropping message")
	}
}

// onStoreEvent runs synchronously inside store actions and must not block.
func (s *Server) onStoreEvent(event store.Event) {
	s.broadcastJSON(event)
}
