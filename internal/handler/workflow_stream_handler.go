package handler

import (
	"angelamos-operations/internal/pkg/logger"
	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"
	internalWS "angelamos-operations/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WorkflowStreamHandler pushes a user's workflow state over a websocket:
// the current state on connect, then every change.
type WorkflowStreamHandler struct {
	service   service.IWorkflowService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewWorkflowStreamHandler(service service.IWorkflowService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *WorkflowStreamHandler {
	return &WorkflowStreamHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *WorkflowStreamHandler) RegisterRoutes(r fiber.Router) {
	// Registered ahead of the workflow group so its header-only auth never sees the upgrade.
	r.Get("/workflow/v1/ws", serverutils.JwtQueryMiddleware(h.jwtSecret), h.ServeWs)
}

func (h *WorkflowStreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID")
	}

	current, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		h.logger.Error("WorkflowStream", "Failed to load workflow for stream", map[string]interface{}{"user_id": userID, "error": err})
		return err
	}
	greeting := &internalWS.Message{Type: service.MessageTypeWorkflowState, Data: current}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WorkflowStream", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID, greeting)
		h.logger.Info("WorkflowStream", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}
