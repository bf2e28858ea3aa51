package bridgeinit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfleet/carstream/pkg/bridge"
	"github.com/openfleet/carstream/pkg/stream"
	"github.com/openfleet/carstream/pkg/types"
)

// --- Application Server ---

// Server exposes the bridge over HTTP and owns the process's serving
// lifecycle. The bridge itself carries no wire format; this layer does.
type Server struct {
	logger     zerolog.Logger
	config     *Config
	service    *bridge.Service
	httpServer *http.Server
}

// NewServer creates and configures a new Server instance.
func NewServer(cfg *Config, service *bridge.Service, logger zerolog.Logger) *Server {
	s := &Server{
		logger:  logger,
		config:  cfg,
		service: service,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: s.Routes(),
	}
	return s
}

// Routes builds the HTTP handler for the server. Exposed for handler tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/cars", s.carsHandler)
	mux.HandleFunc("/brands", s.brandsHandler)
	return mux
}

// Start runs the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.config.HTTPPort).Msg("Starting API server.")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() {
	s.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error during API server shutdown.")
	} else {
		s.logger.Info().Msg("API server stopped.")
	}
}

// healthzHandler responds to health check probes.
func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// carsHandler serves GET /cars?brand=X (query path) and POST /cars
// (publish path).
func (s *Server) carsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getCarsByBrand(w, r)
	case http.MethodPost:
		s.pushCar(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getCarsByBrand(w http.ResponseWriter, r *http.Request) {
	brand := r.URL.Query().Get("brand")
	if brand == "" {
		writeError(w, http.StatusBadRequest, "brand query parameter is required")
		return
	}

	cars, err := stream.Collect(r.Context(), s.service.GetCarsByBrand(r.Context(), brand))
	if err != nil {
		s.writeReadFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *Server) pushCar(w http.ResponseWriter, r *http.Request) {
	var car types.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		writeError(w, http.StatusBadRequest, "invalid car payload")
		return
	}

	if err := s.service.PushData(r.Context(), car); err != nil {
		// Broker handoff faults surface raw on the write path.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	// Handoff accepted; nothing to return.
	w.WriteHeader(http.StatusAccepted)
}

// brandsHandler serves GET /brands.
func (s *Server) brandsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	brands, err := stream.Collect(r.Context(), s.service.GetAllBrands(r.Context()))
	if err != nil {
		s.writeReadFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brands)
}

// writeReadFault maps read-path faults to HTTP. The bridge guarantees the
// only fault kind is data-not-found; anything else is a server error.
func (s *Server) writeReadFault(w http.ResponseWriter, err error) {
	if errors.Is(err, bridge.ErrDataNotFound) {
		writeError(w, http.StatusNotFound, bridge.ErrDataNotFound.Error())
		return
	}
	s.logger.Error().Err(err).Msg("Unexpected read-path fault")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
