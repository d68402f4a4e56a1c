package handlers

import (
	"kiranakart/internal/models"
	"kiranakart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

// userID returns the authenticated user id stored by the auth middleware.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// CartHandler handles HTTP requests for the user's cart.
type CartHandler struct {
	service *services.CartService
	log     *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cart := router.Group("/cart")
	cart.Get("/", h.HandleGetCart)
	cart.Delete("/", h.HandleClearCart)
	cart.Post("/items", h.HandleAddItem)
	cart.Patch("/items/:itemId", h.HandleUpdateQuantity)
	cart.Delete("/items/:itemId", h.HandleRemoveItem)
	cart.Post("/coupon", h.HandleApplyCoupon)
	cart.Delete("/coupon", h.HandleRemoveCoupon)
}

// HandleGetCart returns the user's active cart and its items, or 404 when no
// active cart exists.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	uid := userID(c)

	cart, err := h.service.GetActiveCart(c.Context(), uid)
	if err != nil {
		h.log.Error("failed to get active cart", zap.String("user_id", uid), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
		})
	}
	if cart == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "No active cart",
		})
	}

	items, err := h.service.GetCartItems(c.Context(), uid, cart.CartID)
	if err != nil {
		h.log.Error("failed to list cart items", zap.String("cart_id", cart.CartID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart items",
		})
	}

	return c.JSON(fiber.Map{
		"cart":  cart,
		"items": items,
	})
}

// HandleAddItem adds one unit of a product to the active cart, creating the
// cart first if the user has none.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	uid := userID(c)

	var item models.CartItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid cart item",
			"error":   err.Error(),
		})
	}

	cart, err := h.service.GetActiveCart(c.Context(), uid)
	if err != nil {
		h.log.Error("failed to get active cart", zap.String("user_id", uid), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
		})
	}

	cartID := ""
	if cart != nil {
		cartID = cart.CartID
	} else {
		cartID, err = h.service.CreateCart(c.Context(), uid)
		if err != nil {
			h.log.Error("failed to create cart", zap.String("user_id", uid), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not create cart",
			})
		}
	}

	if err := h.service.AddItemToCart(c.Context(), uid, cartID, item); err != nil {
		h.log.Error("failed to add item to cart", zap.String("cart_id", cartID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not add item to cart",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Item added to cart",
		"cartId":  cartID,
	})
}

// HandleUpdateQuantity sets a cart item's quantity; zero removes the item.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	uid := userID(c)
	itemID := c.Params("itemId")

	var body struct {
		CartID   string `json:"cartId" validate:"required"`
		Quantity int    `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "cartId is required",
		})
	}

	if err := h.service.UpdateItemQuantity(c.Context(), uid, body.CartID, itemID, body.Quantity); err != nil {
		h.log.Error("failed to update item quantity", zap.String("item_id", itemID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update item quantity",
		})
	}

	return c.JSON(fiber.Map{"message": "Cart updated"})
}

// HandleRemoveItem deletes a single item from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	uid := userID(c)
	itemID := c.Params("itemId")
	cartID := c.Query("cartId")
	if cartID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "cartId query parameter is required",
		})
	}

	if err := h.service.RemoveItemFromCart(c.Context(), uid, cartID, itemID); err != nil {
		h.log.Error("failed to remove cart item", zap.String("item_id", itemID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove item from cart",
		})
	}

	return c.JSON(fiber.Map{"message": "Item removed"})
}

// HandleClearCart removes every item and zeroes the cart totals.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	uid := userID(c)
	cartID := c.Query("cartId")
	if cartID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "cartId query parameter is required",
		})
	}

	if err := h.service.ClearCart(c.Context(), uid, cartID); err != nil {
		h.log.Error("failed to clear cart", zap.String("cart_id", cartID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not clear cart",
		})
	}

	return c.JSON(fiber.Map{"message": "Cart cleared"})
}

// HandleApplyCoupon stores a coupon on the cart.
func (h *CartHandler) HandleApplyCoupon(c *fiber.Ctx) error {
	uid := userID(c)

	var body struct {
		CartID string               `json:"cartId" validate:"required"`
		Coupon models.AppliedCoupon `json:"coupon"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "cartId is required",
		})
	}

	if err := h.service.ApplyCoupon(c.Context(), uid, body.CartID, body.Coupon); err != nil {
		h.log.Error("failed to apply coupon", zap.String("cart_id", body.CartID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not apply coupon",
		})
	}

	return c.JSON(fiber.Map{"message": "Coupon applied"})
}

// HandleRemoveCoupon clears the coupon from the cart.
func (h *CartHandler) HandleRemoveCoupon(c *fiber.Ctx) error {
	uid := userID(c)
	cartID := c.Query("cartId")
	if cartID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "cartId query parameter is required",
		})
	}

	if err := h.service.RemoveCoupon(c.Context(), uid, cartID); err != nil {
		h.log.Error("failed to remove coupon", zap.String("cart_id", cartID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove coupon",
		})
	}

	return c.JSON(fiber.Map{"message": "Coupon removed"})
}
