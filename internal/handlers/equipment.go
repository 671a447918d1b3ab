package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"deposition_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusAccepted = "accepted"

	errInvalidBodyPref = "invalid body: "
	errNotConnected    = "telemetry disconnected; commands are disabled"
	errCommandFailed   = "equipment rejected the command"
	errSendCommand     = "failed to send command"
)

// Request DTOs. Pointer fields distinguish "missing" from false/0.
type valueRequest struct {
	Value *float64 `json:"value" binding:"required" example:"35.5"`
}

type openRequest struct {
	Open *bool `json:"open" binding:"required" example:"true"`
}

type onRequest struct {
	On *bool `json:"on" binding:"required" example:"true"`
}

// runCommand maps service errors onto HTTP codes and writes the response.
func (h *Handler) runCommand(c *gin.Context, name string, send func(ctx context.Context) error) {
	err := send(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": statusAccepted, "command": name})
	case errors.Is(err, service.ErrInvalidCommand):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": errNotConnected})
	case errors.Is(err, service.ErrCommandFailed):
		h.logAndJSONError(c, http.StatusBadGateway, errCommandFailed, "equipment_command_rejected", err, "command", name)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errSendCommand, "equipment_command_error", err, "command", name)
	}
}

func (h *Handler) bindCommandBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

func feederParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("feeder"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feeder must be 1 or 2"})
		return 0, false
	}
	return n, true
}

// @Summary      Set gas flow setpoint
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Param        line  path      string        true  "Gas line"  Enums(main,feeder)
// @Param        body  body      valueRequest  true  "Setpoint in SLPM"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/equipment/gas/{line}/flow [post]
// @Security     BearerAuth
func (h *Handler) setGasFlow(c *gin.Context) {
	var req valueRequest
	if !h.bindCommandBody(c, &req) {
		return
	}
	line := service.GasLine(c.Param("line"))
	h.runCommand(c, "gas."+string(line)+"_flow", func(ctx context.Context) error {
		return h.services.SetGasFlow(ctx, line, *req.Value)
	})
}

// @Summary      Open or close a gas valve
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Param        line  path      string       true  "Gas line"  Enums(main,feeder)
// @Param        body  body      openRequest  true  "Valve position"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/equipment/gas/{line}/valve [post]
// @Security     BearerAuth
func (h *Handler) setGasValve(c *gin.Context) {
	var req openRequest
	if !h.bindCommandBody(c, &req) {
		return
	}
	line := service.GasLine(c.Param("line"))
	h.runCommand(c, "gas."+string(line)+"_valve", func(ctx context.Context) error {
		return h.services.SetGasValve(ctx, line, *req.Open)
	})
}

// @Summary      Switch a vacuum device
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Param        device  path      string     true  "Device"  Enums(gate_valve,mechanical_pump,booster_pump)
// @Param        body    body      onRequest  true  "On/off"
// @Success      200     {object}  map[string]string
// @Failure      400     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /api/v1/equipment/vacuum/{device} [post]
// @Security     BearerAuth
func (h *Handler) setVacuum(c *gin.Context) {
	var req onRequest
	if !h.bindCommandBody(c, &req) {
		return
	}
	device := service.VacuumDevice(c.Param("device"))
	h.runCommand(c, "vacuum."+string(device), func(ctx context.Context) error {
		return h.services.SetVacuum(ctx, device, *req.On)
	})
}

// @Summary      Set feeder frequency
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Param        feeder  path      int           true  "Feeder"  Enums(1,2)
// @Param        body    body      valueRequest  true  "Frequency in Hz (200-1200)"
// @Success      200     {object}  map[string]string
// @Failure      400     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /api/v1/equipment/feeder/{feeder}/frequency [post]
// @Security     BearerAuth
func (h *Handler) setFeederFrequency(c *gin.Context) {
	feeder, ok := feederParam(c)
	if !ok {
		return
	}
	var req valueRequest
	if !h.bindCommandBody(c, &req) {
		return
	}
	h.runCommand(c, "feeder"+strconv.Itoa(feeder)+".frequency", func(ctx context.Context) error {
		return h.services.SetFeederFrequency(ctx, feeder, *req.Value)
	})
}

// @Summary      Start or stop a feeder
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Param        feeder  path      int        true  "Feeder"  Enums(1,2)
// @Param        body    body      onRequest  true  "Run state"
// @Success      200     {object}  map[string]string
// @Failure      400     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /api/v1/equipment/feeder/{feeder}/run [post]
// @Security     BearerAuth
func (h *Handler) setFeederRunning(c *gin.Context) {
	feeder, ok := feederParam(c)
	if !ok {
		return
	}
	var req onRequest
	if !h.bindCommandBody(c, &req) {
		return
	}
	h.runCommand(c, "feeder"+strconv.Itoa(feeder)+".run", func(ctx context.Context) error {
		return h.services.SetFeederRunning(ctx, feeder, *req.On)
	})
}

// @Summary      Open or close the nozzle shutter
// @Tags         equipment
// @Accept       json
// @Produce      json
// @Param        body  body      openRequest  true  "Shutter position"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/equipment/nozzle/shutter [post]
// @Security     BearerAuth
func (h *Handler) setShutter(c *gin.Context) {
	var req openRequest
	if !h.bindCommandBody(c, &req) {
		return
	}
	h.runCommand(c, "nozzle.shutter", func(ctx context.Context) error {
		return h.services.SetShutter(ctx, *req.Open)
	})
}
