// Package http exposes the gateway's control-plane endpoints: health,
// instance management, and service metadata.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmadawais/wordpress-playground/internal/dispatch"
	"github.com/ahmadawais/wordpress-playground/internal/domain/instance"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/monitoring"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	instances *instance.Manager
	registry  *dispatch.Registry
	metrics   *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(instances *instance.Manager, registry *dispatch.Registry, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		instances: instances,
		registry:  registry,
		metrics:   metrics,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "playground-gateway",
		"version": "0.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"instances": h.instances.Count(),
		"clients":   h.registry.Count(),
	})
}

type createInstanceRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateInstance registers a new engine instance and mints its scope token
func (h *Handlers) CreateInstance(c *gin.Context) {
	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst := h.instances.Create(req.Name)
	if h.metrics != nil {
		h.metrics.InstancesActive.Set(float64(h.instances.Count()))
	}

	c.JSON(http.StatusCreated, inst)
}

// ListInstances lists registered engine instances
func (h *Handlers) ListInstances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"instances": h.instances.List(),
		"count":     h.instances.Count(),
	})
}

// GetInstance returns one engine instance by scope token
func (h *Handlers) GetInstance(c *gin.Context) {
	token := c.Param("scope")

	inst, ok := h.instances.Get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown scope"})
		return
	}
	c.JSON(http.StatusOK, inst)
}

// DeleteInstance removes an engine instance
func (h *Handlers) DeleteInstance(c *gin.Context) {
	token := c.Param("scope")

	if err := h.instances.Remove(token); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown scope"})
		return
	}
	if h.metrics != nil {
		h.metrics.InstancesActive.Set(float64(h.instances.Count()))
	}

	c.JSON(http.StatusOK, gin.H{"removed": token})
}
