package handlers

import (
	"errors"

	"kiranakart/internal/models"
	"kiranakart/internal/services"
	"kiranakart/internal/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	log     *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orders := router.Group("/orders")
	orders.Post("/", h.HandleCreateOrder)
	orders.Get("/:id", h.HandleGetOrderByID)
}

// HandleCreateOrder is the checkout endpoint: it hands the flat submission to
// the split writer and returns the generated order id plus any coupons whose
// usage tracking failed.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	uid := userID(c)

	var submission models.OrderSubmission
	if err := c.BodyParser(&submission); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	// The authenticated user always owns the order, regardless of what the
	// payload claims.
	submission.UserID = uid

	if err := validate.Struct(submission); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order submission",
			"error":   err.Error(),
		})
	}

	result, err := h.service.SplitAndStoreOrder(c.Context(), submission)
	if err != nil {
		h.log.Error("failed to create order", zap.String("user_id", uid), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create order",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleGetOrderByID returns the order header plus its items.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")

	header, err := h.service.GetOrderByID(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Order not found",
			})
		}
		h.log.Error("failed to get order", zap.String("order_id", orderID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
		})
	}

	items, err := h.service.GetOrderItems(c.Context(), orderID)
	if err != nil {
		h.log.Error("failed to get order items", zap.String("order_id", orderID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order items",
		})
	}

	return c.JSON(fiber.Map{
		"order": header,
		"items": items,
	})
}
