package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"kiranakart/internal/models"
	"kiranakart/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CouponService appends audit records for coupons applied to orders. The
// records feed analytics; redemption limits are enforced elsewhere.
type CouponService struct {
	store store.Gateway
	log   *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(gw store.Gateway, log *zap.Logger) *CouponService {
	return &CouponService{
		store: gw,
		log:   log,
	}
}

// AddCouponUsage inserts one usage record under the user's coupon_usage
// subcollection. Invalid input (missing ids, unresolved coupon, non-finite
// discount) is logged and silently dropped rather than surfaced — coupon
// tracking must never block order creation. Store failures do return, so the
// caller can record them as partial failures.
//
// There is no duplicate detection: identical calls create identical records.
func (s *CouponService) AddCouponUsage(ctx context.Context, userID, couponID, orderID string, discountAmount float64) error {
	if userID == "" || couponID == "" || couponID == models.UnknownCouponID || orderID == "" ||
		math.IsNaN(discountAmount) || math.IsInf(discountAmount, 0) {
		s.log.Warn("skipping coupon usage record, invalid input",
			zap.String("user_id", userID),
			zap.String("coupon_id", couponID),
			zap.String("order_id", orderID),
			zap.Float64("discount_amount", discountAmount),
		)
		return nil
	}

	usageID := uuid.New().String()
	doc := store.Document{
		"usageId":        usageID,
		"userId":         userID,
		"couponId":       couponID,
		"orderId":        orderID,
		"discountAmount": discountAmount,
		"usageDate":      time.Now(),
		"status":         "used",
	}
	if err := s.store.Set(ctx, store.CouponUsagePath(userID), usageID, doc); err != nil {
		return fmt.Errorf("failed to record usage of coupon %s: %w", couponID, err)
	}

	s.log.Info("coupon usage recorded",
		zap.String("user_id", userID),
		zap.String("coupon_id", couponID),
		zap.String("order_id", orderID),
	)
	return nil
}
