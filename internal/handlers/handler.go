package handlers

import (
	"deposition_dashboard/internal/logger"
	"deposition_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	gatherer prometheus.Gatherer
}

// NewHandler constructs a new HTTP handler with dependencies.
// A nil gatherer leaves /metrics unregistered.
func NewHandler(services *service.Service, log *logger.Logger, gatherer prometheus.Gatherer) *Handler {
	return &Handler{services: services, log: log, gatherer: gatherer}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Browser fan-out of the synchronized state.
	router.GET("/ws/state", h.wsState)

	if h.services.Simulator != nil {
		h.registerSimulatorRoutes(router)
	}

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/state", h.getState)
		api.GET("/state/:subtree", h.getSubtree)
	}

	protected := api.Group("", h.operatorMiddleware)
	{
		h.registerEquipmentRoutes(protected)
		protected.GET("/events", h.getEvents)
	}
}

func (h *Handler) registerEquipmentRoutes(api *gin.RouterGroup) {
	eq := api.Group("/equipment")
	{
		// Body example: {"value": 35.5}
		eq.POST("/gas/:line/flow", h.setGasFlow)
		eq.POST("/gas/:line/valve", h.setGasValve)
		eq.POST("/vacuum/:device", h.setVacuum)
		eq.POST("/feeder/:feeder/frequency", h.setFeederFrequency)
		eq.POST("/feeder/:feeder/run", h.setFeederRunning)
		eq.POST("/nozzle/shutter", h.setShutter)
	}
}

// registerSimulatorRoutes mounts the stand-in apparatus: its telemetry
// stream and the command endpoints EquipmentService posts to.
func (h *Handler) registerSimulatorRoutes(r *gin.Engine) {
	r.GET("/sim/ws", h.wsSimulator)
	r.POST("/equipment/*path", h.simCommand)
}
