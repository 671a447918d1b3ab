package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"deposition_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// heartbeatEvery is the number of state frames between two heartbeats.
const heartbeatEvery = 5

// @Summary      Simulated apparatus telemetry
// @Description  WebSocket. Emits a full state_update frame every interval and a heartbeat every fifth tick.
// @Tags         simulator
// @Param        interval     query  string  false  "Tick, e.g. 500ms (max 10s)"
// @Param        interval_ms  query  int     false  "Tick in milliseconds (max 10000)"
// @Router       /sim/ws [get]
func (h *Handler) wsSimulator(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("sim_ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	h.keepAlive(conn)
	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendSimFrame(conn); err != nil {
		if h.log != nil {
			h.log.Infow("sim_ws_write_failed_initial", "err", err)
		}
		return
	}

	for ticks := 1; ; ticks++ {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			if err := writePing(conn); err != nil {
				return
			}
		case now := <-ticker.C:
			if ticks%heartbeatEvery == 0 {
				err = writeText(conn, h.services.Heartbeat(now))
			} else {
				err = h.sendSimFrame(conn)
			}
			if err != nil {
				if h.log != nil {
					h.log.Infow("sim_ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

func (h *Handler) sendSimFrame(conn *websocket.Conn) error {
	frame, err := h.services.Frame()
	if err != nil {
		return err
	}
	return writeText(conn, frame)
}

func writeText(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// @Summary      Simulated command endpoint
// @Description  Accepts the same requests the equipment service sends to real hardware.
// @Tags         simulator
// @Accept       json
// @Produce      json
// @Param        path  path      string  true  "Command path, e.g. gas/main_flow"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /equipment/{path} [post]
func (h *Handler) simCommand(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMsgSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	cmd, err := service.ParseCommand(c.Request.URL.Path, body)
	if err == nil {
		err = h.services.Execute(cmd)
	}
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": statusAccepted, "command": cmd.Name})
	case errors.Is(err, service.ErrUnknownCommand):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInterlock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
