package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes /metrics and /healthz for long-running pipeline
// invocations. Batch runs skip it entirely.
type Server struct {
	router *mux.Router
	http   *http.Server
	log    logrus.FieldLogger
}

// NewServer builds the listener around a recorder's registry
func NewServer(addr string, recorder *Recorder, log logrus.FieldLogger) *Server {
	router := mux.NewRouter()
	s := &Server{
		router: router,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		log: log,
	}

	router.Handle("/metrics", promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	return s
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("metrics listener started")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
