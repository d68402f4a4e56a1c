package services

import (
	"context"
	"fmt"
	"time"

	"kiranakart/internal/models"
	"kiranakart/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService owns the active cart per user, its line items, and the derived
// aggregates. Every mutation recomputes totals from the line items through
// UpdateCartTotals, which is the single source of truth for itemCount and
// totalAmount.
type CartService struct {
	store store.Gateway
	log   *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(gw store.Gateway, log *zap.Logger) *CartService {
	return &CartService{
		store: gw,
		log:   log,
	}
}

// GetActiveCart returns the user's cart with status "active", or nil when
// none exists. If more than one active cart exists the first match wins.
func (s *CartService) GetActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	docs, err := s.store.Query(ctx, store.UserCartPath(userID), []store.Filter{
		store.Eq("status", models.CartStatusActive),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query active cart for user %s: %w", userID, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return models.CartFromDocument(docs[0]), nil
}

// CreateCart inserts a fresh active cart with zeroed counters and returns its id.
func (s *CartService) CreateCart(ctx context.Context, userID string) (string, error) {
	now := time.Now()
	cart := &models.Cart{
		CartID:    uuid.New().String(),
		UserID:    userID,
		Status:    models.CartStatusActive,
		AddedAt:   now,
		UpdatedAt: now,
	}
	if err := s.store.Set(ctx, store.UserCartPath(userID), cart.CartID, cart.Document()); err != nil {
		return "", fmt.Errorf("failed to create cart for user %s: %w", userID, err)
	}
	s.log.Info("cart created", zap.String("user_id", userID), zap.String("cart_id", cart.CartID))
	return cart.CartID, nil
}

// AddItemToCart adds one unit of a product to the cart. Adding a product that
// is already in the cart increments its quantity instead of creating a second
// line. Items without a productId never merge.
func (s *CartService) AddItemToCart(ctx context.Context, userID, cartID string, item models.CartItem) error {
	itemsPath := store.CartItemsPath(userID, cartID)

	var existing []store.Document
	if item.ProductID != "" {
		docs, err := s.store.Query(ctx, itemsPath, []store.Filter{
			store.Eq("productId", item.ProductID),
		})
		if err != nil {
			return fmt.Errorf("failed to look up cart item for product %s: %w", item.ProductID, err)
		}
		existing = docs
	}

	if len(existing) > 0 {
		current := models.CartItemFromDocument(existing[0])
		quantity := current.Quantity + 1
		err := s.store.Update(ctx, itemsPath, current.ItemID, store.Document{
			"quantity":   quantity,
			"totalPrice": current.Price * float64(quantity),
		})
		if err != nil {
			return fmt.Errorf("failed to increment cart item %s: %w", current.ItemID, err)
		}
	} else {
		item.ItemID = uuid.New().String()
		item.UserID = userID
		item.Quantity = 1
		item.TotalPrice = item.Price
		item.AddedAt = time.Now()
		if err := s.store.Set(ctx, itemsPath, item.ItemID, item.Document()); err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
	}

	return s.UpdateCartTotals(ctx, userID, cartID)
}

// UpdateItemQuantity sets the quantity of a cart item, recomputing its total
// price. A quantity of zero or less removes the item entirely.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, cartID, itemID string, quantity int) error {
	itemsPath := store.CartItemsPath(userID, cartID)

	if quantity <= 0 {
		if err := s.store.Delete(ctx, itemsPath, itemID); err != nil {
			return fmt.Errorf("failed to remove cart item %s: %w", itemID, err)
		}
		return s.UpdateCartTotals(ctx, userID, cartID)
	}

	doc, err := s.store.Get(ctx, itemsPath, itemID)
	if err != nil {
		return fmt.Errorf("failed to load cart item %s: %w", itemID, err)
	}
	price := store.AsFloat(doc["price"])
	err = s.store.Update(ctx, itemsPath, itemID, store.Document{
		"quantity":   quantity,
		"totalPrice": price * float64(quantity),
	})
	if err != nil {
		return fmt.Errorf("failed to update cart item %s: %w", itemID, err)
	}

	return s.UpdateCartTotals(ctx, userID, cartID)
}

// RemoveItemFromCart deletes one cart item.
func (s *CartService) RemoveItemFromCart(ctx context.Context, userID, cartID, itemID string) error {
	if err := s.store.Delete(ctx, store.CartItemsPath(userID, cartID), itemID); err != nil {
		return fmt.Errorf("failed to remove cart item %s: %w", itemID, err)
	}
	return s.UpdateCartTotals(ctx, userID, cartID)
}

// ClearCart deletes every item and zeroes the cart aggregates directly; with
// no items left there is nothing to recompute.
func (s *CartService) ClearCart(ctx context.Context, userID, cartID string) error {
	itemsPath := store.CartItemsPath(userID, cartID)

	docs, err := s.store.Query(ctx, itemsPath, nil)
	if err != nil {
		return fmt.Errorf("failed to list cart items: %w", err)
	}
	for _, doc := range docs {
		itemID := store.AsString(doc["itemId"])
		if err := s.store.Delete(ctx, itemsPath, itemID); err != nil {
			return fmt.Errorf("failed to delete cart item %s: %w", itemID, err)
		}
	}

	err = s.store.Update(ctx, store.UserCartPath(userID), cartID, store.Document{
		"itemCount":   0,
		"totalAmount": float64(0),
		"updatedAt":   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to reset cart totals: %w", err)
	}
	return nil
}

// GetCartItems lists the cart's line items.
func (s *CartService) GetCartItems(ctx context.Context, userID, cartID string) ([]*models.CartItem, error) {
	docs, err := s.store.Query(ctx, store.CartItemsPath(userID, cartID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	items := make([]*models.CartItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.CartItemFromDocument(doc))
	}
	return items, nil
}

// UpdateCartTotals reads all cart items and rewrites the cart aggregates:
// itemCount is the sum of quantities, totalAmount the sum of line totals.
func (s *CartService) UpdateCartTotals(ctx context.Context, userID, cartID string) error {
	docs, err := s.store.Query(ctx, store.CartItemsPath(userID, cartID), nil)
	if err != nil {
		return fmt.Errorf("failed to list cart items for totals: %w", err)
	}

	itemCount := 0
	totalAmount := float64(0)
	for _, doc := range docs {
		itemCount += store.AsInt(doc["quantity"])
		totalAmount += store.AsFloat(doc["totalPrice"])
	}

	err = s.store.Update(ctx, store.UserCartPath(userID), cartID, store.Document{
		"itemCount":   itemCount,
		"totalAmount": totalAmount,
		"updatedAt":   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to update cart totals: %w", err)
	}
	return nil
}

// ApplyCoupon stores the coupon on the cart. Eligibility is not validated
// here; that sits with the coupon backend.
func (s *CartService) ApplyCoupon(ctx context.Context, userID, cartID string, coupon models.AppliedCoupon) error {
	couponDoc := store.Document{
		"couponId": coupon.ResolveID(),
	}
	if coupon.Code != "" {
		couponDoc["code"] = coupon.Code
	}
	if coupon.DiscountAmount != nil {
		couponDoc["discountAmount"] = *coupon.DiscountAmount
	}
	err := s.store.Update(ctx, store.UserCartPath(userID), cartID, store.Document{
		"appliedCoupon": couponDoc,
		"updatedAt":     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to apply coupon to cart %s: %w", cartID, err)
	}
	return nil
}

// RemoveCoupon clears the coupon field from the cart.
func (s *CartService) RemoveCoupon(ctx context.Context, userID, cartID string) error {
	err := s.store.Update(ctx, store.UserCartPath(userID), cartID, store.Document{
		"appliedCoupon": nil,
		"updatedAt":     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to remove coupon from cart %s: %w", cartID, err)
	}
	return nil
}

// DeactivateActiveCart marks the user's active cart as consumed by an order.
// A missing active cart is logged and ignored so a retried checkout does not
// fail on this step.
func (s *CartService) DeactivateActiveCart(ctx context.Context, userID string) error {
	cart, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		s.log.Warn("no active cart to deactivate", zap.String("user_id", userID))
		return nil
	}

	err = s.store.Update(ctx, store.UserCartPath(userID), cart.CartID, store.Document{
		"status":       models.CartStatusInactive,
		"usedForOrder": true,
		"updatedAt":    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate cart %s: %w", cart.CartID, err)
	}
	s.log.Info("cart deactivated", zap.String("user_id", userID), zap.String("cart_id", cart.CartID))
	return nil
}
