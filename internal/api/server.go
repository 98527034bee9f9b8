package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mpnn-design-labs/design-node/internal/api/middleware"
	"github.com/mpnn-design-labs/design-node/internal/database"
	"github.com/mpnn-design-labs/design-node/internal/pipeline"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// APIServer provides the HTTP REST/WebSocket API for the design node
type APIServer struct {
	ctx       context.Context
	cancel    context.CancelFunc
	server    *http.Server
	listener  net.Listener
	port      string
	logger    *utils.LogsManager
	config    *utils.ConfigManager
	designer  *pipeline.Designer
	dbManager *database.SQLiteManager
	startTime time.Time
}

// NewAPIServer creates a new API server instance
func NewAPIServer(
	config *utils.ConfigManager,
	logger *utils.LogsManager,
	designer *pipeline.Designer,
	dbManager *database.SQLiteManager,
) *APIServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &APIServer{
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		config:    config,
		designer:  designer,
		dbManager: dbManager,
		startTime: time.Now(),
	}
}

// Start initializes and starts the API server
func (s *APIServer) Start() error {
	apiPort := s.config.GetConfigWithDefault("api_port", "8080")
	s.port = apiPort

	s.logger.Info(fmt.Sprintf("Starting API server on port %s", apiPort), "api")

	fallbackPortsStr := s.config.GetConfigWithDefault("api_fallback_ports", "8081,8082")
	fallbackPorts := parsePortList(fallbackPortsStr)

	ports := append([]string{apiPort}, fallbackPorts...)
	var err error

	for _, port := range ports {
		addr := fmt.Sprintf(":%s", port)
		s.listener, err = net.Listen("tcp", addr)
		if err == nil {
			s.port = port
			s.logger.Info(fmt.Sprintf("API server bound to port %s", port), "api")
			break
		}
	}

	if s.listener == nil {
		return fmt.Errorf("failed to bind API server to any port: %v", err)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := middleware.CORSMiddleware(mux)

	// Generation runs can take minutes, so the write timeout must cover a
	// full step timeout budget
	stepTimeout := time.Duration(s.config.GetConfigInt("step_timeout_sec", 600, 1, 86400)) * time.Second
	s.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 3*stepTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error(fmt.Sprintf("API server error: %v", err), "api")
		}
	}()

	s.logger.Info("API server started successfully", "api")
	return nil
}

// registerRoutes sets up all HTTP routes
func (s *APIServer) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/node/status", s.handleNodeStatus)

	mux.HandleFunc("/api/v1/design", s.handleDesign)

	mux.HandleFunc("/api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("/api/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/log") {
			s.handleJobLog(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/log/tail") {
			s.handleJobLogTail(w, r)
			return
		}
		s.handleGetJob(w, r)
	})

	s.logger.Debug("API routes registered", "api")
}

// handleHealth returns API health status
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","uptime":%d}`, int64(time.Since(s.startTime).Seconds()))
}

// Stop gracefully shuts down the API server
func (s *APIServer) Stop() error {
	s.logger.Info("Stopping API server", "api")
	s.cancel()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}

	return nil
}

// GetPort returns the port the server is listening on
func (s *APIServer) GetPort() string {
	return s.port
}

// parsePortList parses a comma-separated list of ports
func parsePortList(portList string) []string {
	if portList == "" {
		return []string{}
	}
	ports := strings.Split(portList, ",")
	result := make([]string, 0, len(ports))
	for _, port := range ports {
		port = strings.TrimSpace(port)
		if port != "" {
			result = append(result, port)
		}
	}
	return result
}
