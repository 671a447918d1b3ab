package handlers

import (
	"errors"
	"net/http"

	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const errUnknownSubtree = "unknown sub-tree; use equipment, motion or safety"

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// stateResponse is the JSON form of a hub.View.
type stateResponse struct {
	State     any    `json:"state"`
	Status    string `json:"status" example:"connected"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty" example:"telemetry connection closed"`
}

func newStateResponse(v hub.View) stateResponse {
	return stateResponse{State: v.State, Status: v.Status.String(), Connected: v.Connected, Error: v.Error}
}

// @Summary      Health check
// @Description  Aggregated status of the telemetry link and the database.
// @Tags         system
// @Produce      json
// @Success      200  {object}  service.Health
// @Failure      503  {object}  service.Health
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	res := h.services.Health(c.Request.Context())
	code := http.StatusOK
	if res.Status == service.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

// @Summary      Get synchronized state
// @Description  Current SystemState together with the telemetry connection status.
// @Tags         state
// @Produce      json
// @Success      200  {object}  stateResponse
// @Router       /api/v1/state [get]
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, newStateResponse(h.services.Current()))
}

// @Summary      Get one state sub-tree
// @Tags         state
// @Produce      json
// @Param        subtree  path      string  true  "Sub-tree"  Enums(equipment,motion,safety)
// @Success      200      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]string
// @Router       /api/v1/state/{subtree} [get]
func (h *Handler) getSubtree(c *gin.Context) {
	name := c.Param("subtree")
	st, err := h.services.Subtree(name)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSubtree) {
			c.JSON(http.StatusNotFound, gin.H{"error": errUnknownSubtree})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load state", "state_subtree_failed", err, "subtree", name)
		return
	}
	c.JSON(http.StatusOK, st)
}
