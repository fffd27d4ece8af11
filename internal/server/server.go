package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/chat"
	"github.com/harborbank/advisor/internal/llm"
	"github.com/harborbank/advisor/internal/playground"
)

// Config holds server configuration.
type Config struct {
	Addr string // listen address, e.g. ":8080"

	Provider string
	Model    string
}

// Server is the HTTP surface of the advisor: conversations, accounts,
// and the playground tool builder.
type Server struct {
	config       Config
	orchestrator *chat.Orchestrator
	accounts     accounts.Store
	tools        *playground.Store
	llmClient    *llm.Client
	baseCtx      context.Context
	cancel       context.CancelFunc
	httpSrv      *http.Server
	logger       *slog.Logger
}

// New creates a Server wired to the given orchestrator and stores.
func New(cfg Config, o *chat.Orchestrator, acct accounts.Store, tools *playground.Store, client *llm.Client, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:       cfg,
		orchestrator: o,
		accounts:     acct,
		tools:        tools,
		llmClient:    client,
		baseCtx:      ctx,
		cancel:       cancel,
		logger:       logger,
	}

	s.httpSrv = &http.Server{
		Handler:      csrfProtect(s.Routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE requires no write timeout
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return s
}

// Routes builds the request mux. Exposed for handler tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Go 1.22+ method+pattern routing.
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /conversations/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("GET /conversations/{id}/stream", s.handleConversationStream)
	mux.HandleFunc("GET /conversations/{id}/log", s.handleConversationLog)
	mux.HandleFunc("POST /conversations/{id}/close", s.handleCloseConversation)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("POST /accounts", s.handleOpenAccount)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /tools", s.handleSaveTool)
	mux.HandleFunc("POST /playground/chat", s.handlePlaygroundChat)

	return mux
}

// ListenAndServe starts the server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		s.logger.Info("shutting down", "signal", sig.String())
		s.Shutdown()
	}()

	s.logger.Info("listening", "addr", s.config.Addr)
	s.httpSrv.Addr = s.config.Addr
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// csrfProtect rejects cross-origin POST requests. Browsers set the Origin
// header on cross-origin requests, so checking it blocks CSRF from remote
// pages while allowing CLI and same-host callers.
func csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			origin := r.Header.Get("Origin")
			if origin != "" {
				u, err := url.Parse(origin)
				if err != nil {
					http.Error(w, `{"error":"invalid Origin header"}`, http.StatusForbidden)
					return
				}
				host := u.Hostname()
				if host != "localhost" && host != "127.0.0.1" && host != "::1" {
					http.Error(w, `{"error":"cross-origin request blocked"}`, http.StatusForbidden)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)

	s.cancel()
}
