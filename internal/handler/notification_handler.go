package handler

import (
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	internalWS "ai-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NotificationHandler upgrades authenticated clients to a push-only socket fed by the hub.
type NotificationHandler struct {
	auth   serverutils.Authenticator
	users  serverutils.UserResolver
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewNotificationHandler(auth serverutils.Authenticator, users serverutils.UserResolver, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		auth:   auth,
		users:  users,
		hub:    hub,
		logger: log,
	}
}

// ServeWs authenticates the handshake then hands the connection to the hub.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query param wins.
	credential := c.Query("token")
	if credential == "" {
		token, err := serverutils.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return apierr.Auth("missing token (query 'token' or Authorization header)")
		}
		credential = token
	}

	identity, err := h.auth.Authenticate(credential)
	if err != nil {
		h.logger.Warn("NotificationHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return err
	}
	userID, err := h.users.ResolveUser(c.UserContext(), identity)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID.String()})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID.String()})
	})(c)
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/notification/v1/ws", h.ServeWs)
}
