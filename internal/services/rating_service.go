package services

import (
	"context"
	"errors"
	"fmt"

	"kiranakart/internal/store"

	"go.uber.org/zap"
)

// ErrRatingNotAllowed is surfaced when the store's access rules reject the
// rating transaction.
var ErrRatingNotAllowed = errors.New("you do not have permission to rate this item")

// RatingService maintains the running average rating on catalog menu items.
// The aggregate update is the one place in this codebase that needs a real
// read-modify-write transaction; concurrent ratings must not lose updates.
type RatingService struct {
	store store.Gateway
	log   *zap.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(gw store.Gateway, log *zap.Logger) *RatingService {
	return &RatingService{
		store: gw,
		log:   log,
	}
}

// RateMenuItem folds one user rating into the item's running average inside a
// transaction. Fresh items start from rating 0 and ratingCount 0.
func (s *RatingService) RateMenuItem(ctx context.Context, restaurantID, menuItemID string, userRating float64) error {
	err := s.store.RunTransaction(ctx, store.MenuItemsPath(restaurantID), menuItemID, func(doc store.Document) (store.Document, error) {
		rating := store.AsFloat(doc["rating"])
		count := store.AsInt(doc["ratingCount"])
		newAverage := (rating*float64(count) + userRating) / float64(count+1)
		return store.Document{
			"rating":      newAverage,
			"ratingCount": count + 1,
		}, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			s.log.Warn("rating rejected by store rules",
				zap.String("restaurant_id", restaurantID),
				zap.String("menu_item_id", menuItemID),
			)
			return ErrRatingNotAllowed
		}
		return fmt.Errorf("failed to rate menu item %s: %w", menuItemID, err)
	}

	s.log.Info("menu item rated",
		zap.String("restaurant_id", restaurantID),
		zap.String("menu_item_id", menuItemID),
		zap.Float64("rating", userRating),
	)
	return nil
}

// SaveUserRatingToOrder stamps the specific order item with the user's rating
// and marks it as rated. This is a separate, non-transactional write from the
// aggregate update in RateMenuItem.
func (s *RatingService) SaveUserRatingToOrder(ctx context.Context, orderID, itemID string, userRating float64) error {
	err := s.store.Update(ctx, store.OrderItemsPath(orderID), itemID, store.Document{
		"userRating": userRating,
		"isRated":    true,
	})
	if err != nil {
		return fmt.Errorf("failed to save rating on order item %s: %w", itemID, err)
	}
	return nil
}
