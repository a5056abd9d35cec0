package devproxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const Prefix = "/api"

type Handler struct {
	upstream *UpstreamProxy
	logger   *slog.Logger
}

func NewHandler(upstream *UpstreamProxy, logger *slog.Logger) *Handler {
	return &Handler{
		upstream: upstream,
		logger:   logger,
	}
}

// HandleAPI forwards /api/* to the upstream with the /api prefix removed.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, Prefix)
	if path == "" {
		path = "/"
	}

	resp, err := h.upstream.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path, "target", h.upstream.Target())
		writeError(w, h.logger, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

// AllowHosts rejects requests whose Host is not a permitted development host.
func AllowHosts(allowed func(host string) bool, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(r.Host) {
			logger.Warn("blocked request from disallowed host", "host", r.Host, "path", r.URL.Path)
			writeError(w, logger, http.StatusForbidden, "host not allowed: "+r.Host)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}
