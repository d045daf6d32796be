// Package server exposes the runner controls over HTTP, a JSON-RPC command
// bridge (HTTP or stdio) and a server-sent event stream.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sevir/runnerhost/internal/config"
	"github.com/sevir/runnerhost/internal/diagnostics"
	"github.com/sevir/runnerhost/internal/host"
	"github.com/sevir/runnerhost/internal/journal"
	"github.com/sevir/runnerhost/internal/runner"
	"github.com/sevir/runnerhost/internal/surface"
)

const jsonRPCVersion = "2.0"

// Server is the control API of the runner host.
type Server struct {
	supervisor *runner.Supervisor
	host       *host.Host
	dispatcher *surface.Dispatcher
	journal    *journal.Journal
	inspector  *diagnostics.ProcessInspector
	config     *config.Config
	logger     zerolog.Logger

	addr       string
	version    string
	commit     string
	httpServer *http.Server
	useStdio   bool
	startedAt  time.Time
	done       chan struct{}
	closeOnce  sync.Once

	commands    map[string]CommandHandler
	subscribers map[string]*subscriber
	subMu       sync.RWMutex
}

type subscriber struct {
	ID        string
	CreatedAt time.Time
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CommandHandler handles one named command.
type CommandHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Config holds server configuration.
type Config struct {
	Addr       string
	Supervisor *runner.Supervisor
	Host       *host.Host
	Dispatcher *surface.Dispatcher
	Journal    *journal.Journal
	Inspector  *diagnostics.ProcessInspector
	AppConfig  *config.Config
	Logger     zerolog.Logger
	Version    string
	Commit     string
	UseStdio   bool
}

// New creates a new control server.
func New(cfg Config) *Server {
	s := &Server{
		supervisor:  cfg.Supervisor,
		host:        cfg.Host,
		dispatcher:  cfg.Dispatcher,
		journal:     cfg.Journal,
		inspector:   cfg.Inspector,
		config:      cfg.AppConfig,
		logger:      cfg.Logger,
		addr:        cfg.Addr,
		version:     cfg.Version,
		commit:      cfg.Commit,
		useStdio:    cfg.UseStdio,
		startedAt:   time.Now(),
		done:        make(chan struct{}),
		commands:    make(map[string]CommandHandler),
		subscribers: make(map[string]*subscriber),
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}

	s.registerCommands()

	// Only set up HTTP server if not using stdio
	if !cfg.UseStdio {
		mux := http.NewServeMux()
		mux.HandleFunc("/invoke", s.handleInvoke)
		mux.HandleFunc("/events/sse", s.handleSSE)
		mux.HandleFunc("/health", s.handleHealth)

		// REST API is handled by Gin, while the command bridge and SSE stay on the stdlib mux.
		mux.Handle("/", s.newGinEngine())

		s.httpServer = &http.Server{
			Addr:         cfg.Addr,
			Handler:      s.corsMiddleware(mux),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, // No timeout for SSE
		}
	}

	return s
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start serves HTTP or the stdio loop until shut down.
func (s *Server) Start() error {
	if s.useStdio {
		return s.serveStdio(os.Stdin, os.Stdout)
	}
	s.logger.Info().Str("addr", s.addr).Msg("control server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. In stdio mode it releases
// Start without waiting for the pending read.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	if s.useStdio {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler, or nil in stdio mode.
func (s *Server) Handler() http.Handler {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Handler
}

func (s *Server) serveStdio(r io.Reader, w io.Writer) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.runStdio(r, w) }()

	select {
	case err := <-errCh:
		return err
	case <-s.done:
		return nil
	}
}

// runStdio serves newline-delimited JSON-RPC requests from r.
func (s *Server) runStdio(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			encoder.Encode(rpcError(nil, -32700, "Parse error", err.Error()))
			continue
		}

		response := s.handleRequest(context.Background(), &req)
		if err := encoder.Encode(response); err != nil {
			s.logger.Error().Err(err).Msg("error encoding response")
			return err
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("error reading from stdin: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	running, _ := s.supervisor.Status()

	s.subMu.RLock()
	subs := len(s.subscribers)
	s.subMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "healthy",
		"runner_running": running,
		"subscribers":    subs,
		"uptime":         time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(rpcError(nil, -32700, "Parse error", err.Error()))
		return
	}

	response := s.handleRequest(r.Context(), &req)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "ping":
		return &JSONRPCResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: map[string]interface{}{}}
	case "commands/list":
		return &JSONRPCResponse{
			JSONRPC: jsonRPCVersion,
			ID:      req.ID,
			Result:  map[string]interface{}{"commands": commandDefinitions()},
		}
	}

	handler, exists := s.commands[req.Method]
	if !exists {
		return rpcError(req.ID, -32601, "Method not found", req.Method)
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		return rpcError(req.ID, -32000, err.Error(), nil)
	}

	return &JSONRPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      req.ID,
		Result:  result,
	}
}

func rpcError(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// handleSSE streams supervisor transitions to the client until it
// disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sub := &subscriber{ID: uuid.New().String(), CreatedAt: time.Now()}
	s.subMu.Lock()
	s.subscribers[sub.ID] = sub
	s.subMu.Unlock()

	events, cancel := s.journal.Watch(32)
	defer func() {
		cancel()
		s.subMu.Lock()
		delete(s.subscribers, sub.ID)
		s.subMu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial connection event
	fmt.Fprintf(w, "event: connected\ndata: {\"subscriberId\":\"%s\"}\n\n", sub.ID)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: runner\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
