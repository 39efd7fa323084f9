package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type SystemHandler struct {
	store  HealthChecker
	driver string
}

func NewSystemHandler(store HealthChecker, driver string) *SystemHandler {
	return &SystemHandler{store: store, driver: driver}
}

// Root is a liveness probe.
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "API is running!"})
}

// Health pings the store.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "down",
			"driver":   h.driver,
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "up",
		"driver":   h.driver,
	})
}

// NotFound answers unknown routes with a JSON body.
func (h *SystemHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteNotFound(w, "Route not found")
}
