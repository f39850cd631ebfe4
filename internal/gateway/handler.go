package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	tradeProxy *ServiceProxy
	itemProxy  *ServiceProxy
	payProxy   *ServiceProxy
	logger     *slog.Logger
}

func NewHandler(tradeProxy, itemProxy, payProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		tradeProxy: tradeProxy,
		itemProxy:  itemProxy,
		payProxy:   payProxy,
		logger:     logger,
	}
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.tradeProxy, r.URL.Path)
}

func (h *Handler) HandleItems(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.itemProxy, r.URL.Path)
}

func (h *Handler) HandlePayOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.payProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	userID := resolveUser(r)

	resp, err := proxy.ForwardRequest(r.Context(), r, path, userID)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode, "user_id", userID)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

// resolveUser extracts the acting user from the Authorization bearer token.
// Requests without one are forwarded anonymously; the backing services
// decide whether the operation needs a user.
func resolveUser(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
