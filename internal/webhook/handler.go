// Package webhook is the HTTP ingress for chat platform adapters. An
// adapter POSTs one Event per inbound message and gets back a reply, or
// 204 when the event is not ours.
package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/memebox/memebox/internal/dispatch"
	"github.com/memebox/memebox/pkg/platform"
)

const maxBodyBytes = 1 * 1024 * 1024 // 1 MB

// Handler returns the event-ingress handler.
func Handler(h *dispatch.Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		handleEvent(w, r, h, log)
	})
	return mux
}

// HealthHandler returns an HTTP handler for liveness and readiness
// probes.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func handleEvent(w http.ResponseWriter, r *http.Request, h *dispatch.Handler, log *zap.Logger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	var ev platform.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "decode event", http.StatusBadRequest)
		return
	}
	reply, ok := h.Handle(r.Context(), ev)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		log.Warn("write reply failed", zap.Error(err))
	}
}

// Serve blocks running the event server, with TLS when both cert and key
// paths are set.
func Serve(cfg Config, h *dispatch.Handler, log *zap.Logger) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("event server listening", zap.String("addr", addr))
	if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
		return srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	}
	return srv.ListenAndServe()
}
