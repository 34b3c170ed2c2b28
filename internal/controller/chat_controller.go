package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"car-rental-assistant-be/internal/dto"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/pkg/serverutils"
	"car-rental-assistant-be/internal/service"
	"car-rental-assistant-be/pkg/assistant"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendQuery(ctx *fiber.Ctx) error
	GetSessions(ctx *fiber.Ctx) error
	GetSessionMessages(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	log         logger.ILogger
}

func NewChatController(chatService service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		log:         log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Get("ws", c.ServeWs) // authenticates its own token during handshake

	h.Use(serverutils.JwtMiddleware)
	h.Post("chat", c.SendQuery)
	h.Get("sessions", c.GetSessions)
	h.Get("sessions/:session_id/messages", c.GetSessionMessages)
	h.Delete("sessions/:session_id", c.DeleteSession)
}

// SendQuery runs one conversational turn and streams its events as
// server-sent events, one JSON payload per event.
func (c *chatController) SendQuery(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.SendQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The stream writer runs after this handler returns, so the turn gets
	// its own context rather than the request's.
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		sink := func(event assistant.Event) {
			payload, err := json.Marshal(event)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			w.Flush()
		}

		if _, err := c.chatService.ProcessTurn(context.Background(), userId, &req, sink); err != nil {
			c.log.Error("chat_controller", "turn failed", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
	}))

	return nil
}

func (c *chatController) GetSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *chatController) GetSessionMessages(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetSessionMessages(ctx.Context(), userId, ctx.Params("session_id"), ctx.QueryInt("limit"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session messages", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, ctx.Params("session_id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

// ServeWs upgrades to a websocket chat: each inbound frame is a query, each
// turn event goes back as one JSON frame. Browsers cannot set headers on a
// websocket handshake, so the token also rides a query parameter.
func (c *chatController) ServeWs(ctx *fiber.Ctx) error {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}
	userIdStr, ok := claims["user_id"].(string)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Token missing user_id"})
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid user identity"})
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.log.Info("chat_controller", "websocket session started", map[string]interface{}{
			"user_id": userId.String(),
		})
		defer c.log.Info("chat_controller", "websocket session ended", map[string]interface{}{
			"user_id": userId.String(),
		})

		for {
			var req dto.SendQueryRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if err := serverutils.ValidateRequest(req); err != nil {
				conn.WriteJSON(fiber.Map{"error": err.Error()})
				continue
			}

			sink := func(event assistant.Event) {
				if err := conn.WriteJSON(event); err != nil {
					c.log.Warn("chat_controller", "websocket write failed", map[string]interface{}{
						"user_id": userId.String(),
						"error":   err.Error(),
					})
				}
			}

			if _, err := c.chatService.ProcessTurn(context.Background(), userId, &req, sink); err != nil {
				c.log.Error("chat_controller", "websocket turn failed", map[string]interface{}{
					"user_id": userId.String(),
					"error":   err.Error(),
				})
			}
		}
	})(ctx)
}
