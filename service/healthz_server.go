package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/rs/cors"
)

// HealthzServer answers liveness probes. When a state source is attached
// it also reports the controller's current run state, so an editor or
// dashboard can tell whether a run is in flight.
type HealthzServer struct {
	ctx    context.Context
	server *http.Server

	// StateSource returns the current run-controller state, e.g. "idle".
	StateSource func() string
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	server := &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}
	h.server = server
	h.ctx = ctx
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Printf("Received health check request at %s", r.URL.Path)
	body := map[string]string{"status": "ok"}
	if h.StateSource != nil {
		body["run_state"] = h.StateSource()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
