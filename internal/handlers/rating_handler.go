package handlers

import (
	"errors"

	"kiranakart/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RatingHandler handles menu-item rating requests.
type RatingHandler struct {
	service *services.RatingService
	log     *zap.Logger
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(service *services.RatingService, log *zap.Logger) *RatingHandler {
	return &RatingHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the rating routes with the Fiber app.
func (h *RatingHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/restaurants/:restaurantId/menu-items/:menuItemId/rating", h.HandleRateMenuItem)
}

// HandleRateMenuItem folds the rating into the item's running average and,
// when the request names an order item, stamps that item as rated.
func (h *RatingHandler) HandleRateMenuItem(c *fiber.Ctx) error {
	restaurantID := c.Params("restaurantId")
	menuItemID := c.Params("menuItemId")

	var body struct {
		Rating      float64 `json:"rating" validate:"required,gte=1,lte=5"`
		OrderID     string  `json:"orderId"`
		OrderItemID string  `json:"orderItemId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Rating must be between 1 and 5",
		})
	}

	if err := h.service.RateMenuItem(c.Context(), restaurantID, menuItemID, body.Rating); err != nil {
		if errors.Is(err, services.ErrRatingNotAllowed) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		h.log.Error("failed to rate menu item", zap.String("menu_item_id", menuItemID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not submit rating",
		})
	}

	if body.OrderID != "" && body.OrderItemID != "" {
		if err := h.service.SaveUserRatingToOrder(c.Context(), body.OrderID, body.OrderItemID, body.Rating); err != nil {
			h.log.Error("failed to stamp order item rating",
				zap.String("order_id", body.OrderID),
				zap.String("order_item_id", body.OrderItemID),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Rating saved but order item could not be updated",
			})
		}
	}

	return c.JSON(fiber.Map{"message": "Rating submitted"})
}
