package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"kiranakart/internal/models"
	"kiranakart/internal/store"
	"kiranakart/pkg/rabbitmq"

	"go.uber.org/zap"
)

// OrderService is the order split writer: it takes one flat order submission
// and fans it out into the order header plus its dependent subcollections
// (items, payment, status history), records coupon usage, and deactivates the
// source cart.
//
// The fan-out is strictly sequential and not wrapped in a multi-document
// transaction; a store failure partway through leaves a partially written
// order that surfaces to the caller as an error.
type OrderService struct {
	store   store.Gateway
	carts   *CartService
	coupons *CouponService
	mq      *rabbitmq.Client
	log     *zap.Logger
}

// NewOrderService creates a new OrderService. mq may be nil; event publishing
// is best-effort.
func NewOrderService(gw store.Gateway, carts *CartService, coupons *CouponService, mq *rabbitmq.Client, log *zap.Logger) *OrderService {
	return &OrderService{
		store:   gw,
		carts:   carts,
		coupons: coupons,
		mq:      mq,
		log:     log,
	}
}

// GenerateOrderID builds an order id of the form ORD_<6 timestamp digits><3
// random digits>. The timestamp digits are the last six of the current epoch
// milliseconds; the random digits are the last three of a zero-padded
// nine-digit random number. Collision avoidance is heuristic — there is no
// uniqueness check before write.
func GenerateOrderID() string {
	timestampPart := fmt.Sprintf("%06d", time.Now().UnixMilli()%1_000_000)
	randomDigits := fmt.Sprintf("%09d", rand.Intn(1_000_000_000))
	return "ORD_" + timestampPart + randomDigits[6:]
}

// SplitAndStoreOrder decomposes a checkout submission into:
//
//	1 header write + N item writes + 1 payment write + 1 status-history write
//	+ M coupon-usage writes + 1 cart-deactivation write
//
// in that order, each awaited before the next. Coupon-usage failures are
// collected on the result instead of aborting; every other failure propagates.
func (s *OrderService) SplitAndStoreOrder(ctx context.Context, sub models.OrderSubmission) (*models.OrderResult, error) {
	orderID := GenerateOrderID()
	now := time.Now()

	log := s.log.With(
		zap.String("order_id", orderID),
		zap.String("user_id", sub.UserID),
		zap.Int("item_count", len(sub.Items)),
	)
	log.Info("splitting order submission")

	header := s.createMainOrder(orderID, sub, now)
	if err := s.store.Set(ctx, store.OrdersPath, orderID, header); err != nil {
		return nil, fmt.Errorf("failed to write order header %s: %w", orderID, err)
	}

	result := &models.OrderResult{OrderID: orderID}
	s.recordCouponUsage(ctx, orderID, sub, result, log)

	if err := s.createOrderItems(ctx, orderID, sub); err != nil {
		return nil, err
	}
	if err := s.createPaymentRecord(ctx, orderID, sub, now); err != nil {
		return nil, err
	}
	if err := s.createStatusHistory(ctx, orderID, header); err != nil {
		return nil, err
	}
	if err := s.carts.DeactivateActiveCart(ctx, sub.UserID); err != nil {
		return nil, err
	}

	s.publishOrderCreated(orderID, sub, header, log)

	log.Info("order stored", zap.Int("coupon_failures", len(result.CouponFailures)))
	return result, nil
}

// createMainOrder builds the order header document. Missing numerics default
// to zero, status to "pending", payment method to "UPI", and the delivery
// address is normalized into a fixed shape with a (0,0) geo point fallback.
func (s *OrderService) createMainOrder(orderID string, sub models.OrderSubmission, now time.Time) store.Document {
	status := sub.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	paymentMethod := sub.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}
	paymentStatus := sub.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.OrderStatusPending
	}

	coupons := make([]store.Document, 0, len(sub.AppliedCoupons))
	for _, c := range sub.AppliedCoupons {
		coupons = append(coupons, store.Document{
			"couponId":       c.ResolveID(),
			"discountAmount": c.ResolveDiscount(sub.Discount),
		})
	}

	return store.Document{
		"orderId":               orderID,
		"userId":                sub.UserID,
		"customerId":            customerID(sub),
		"restaurantId":          sub.RestaurantID,
		"deliveryAddress":       normalizeAddress(sub.DeliveryAddress),
		"deliveryCharges":       sub.DeliveryCharges,
		"discount":              sub.Discount,
		"taxes":                 sub.Taxes,
		"totalAmount":           sub.TotalAmount,
		"finalAmount":           sub.FinalAmount,
		"paymentMethod":         paymentMethod,
		"paymentStatus":         paymentStatus,
		"status":                status,
		"appliedCoupons":        coupons,
		"createdAt":             now,
		"updatedAt":             now,
		"scheduledFor":          sub.ScheduledFor,
		"estimatedDeliveryTime": nil,
		"actualDeliveryTime":    nil,
		"instructions":          sub.Instructions,
		"cancellationReason":    "",
		"deliveryPartnerId":     "",
		"refundAmount":          float64(0),
	}
}

// recordCouponUsage runs the per-coupon bookkeeping loop. Each coupon is
// resolved once, recorded best-effort, and failures land on the result rather
// than aborting the enclosing order creation.
func (s *OrderService) recordCouponUsage(ctx context.Context, orderID string, sub models.OrderSubmission, result *models.OrderResult, log *zap.Logger) {
	for _, coupon := range sub.AppliedCoupons {
		couponID := coupon.ResolveID()
		discount := coupon.ResolveDiscount(sub.Discount)

		err := s.coupons.AddCouponUsage(ctx, sub.UserID, couponID, orderID, discount)
		if err != nil {
			log.Warn("coupon usage tracking failed",
				zap.String("coupon_id", couponID),
				zap.Error(err),
			)
			result.CouponFailures = append(result.CouponFailures, models.CouponFailure{
				CouponID: couponID,
				Reason:   err.Error(),
			})
		}
	}
}

// createOrderItems writes one order_items document per cart line. Lines are
// classified as menu_item or product and only the fields relevant to that
// classification are populated; empty fields are pruned before write.
func (s *OrderService) createOrderItems(ctx context.Context, orderID string, sub models.OrderSubmission) error {
	itemsPath := store.OrderItemsPath(orderID)
	for i, item := range sub.Items {
		doc := buildOrderItem(item, customerID(sub))
		if _, err := s.store.Add(ctx, itemsPath, doc); err != nil {
			return fmt.Errorf("failed to write order item %d of order %s: %w", i, orderID, err)
		}
	}
	return nil
}

// buildOrderItem assembles the persisted order-item shape for one cart line.
// Fields that end up empty are omitted entirely, and the links sub-object is
// dropped when all of its entries are empty.
func buildOrderItem(item models.SubmissionItem, customerID string) store.Document {
	itemType := models.ItemTypeProduct
	if item.RestaurantID != "" {
		itemType = models.ItemTypeMenuItem
	}

	category := item.Category
	if category == "" || category == "Main" {
		category = "General"
	}

	doc := store.Document{
		"category":   category,
		"name":       item.Name,
		"quantity":   item.Quantity,
		"status":     models.OrderStatusPending,
		"totalPrice": item.UnitPrice * float64(item.Quantity),
		"type":       itemType,
		"unitPrice":  item.UnitPrice,
		"customerId": customerID,
	}
	if len(item.Customizations) > 0 {
		doc["customizations"] = item.Customizations
	}

	links := store.Document{
		"serviceId": item.ServiceID,
	}
	if itemType == models.ItemTypeMenuItem {
		doc["chefId"] = item.ChefID
		doc["cuisine"] = item.Cuisine
		if item.PrepTime > 0 {
			doc["prepTime"] = item.PrepTime
		}
		links["menuItemId"] = item.MenuItemID
		links["restaurantId"] = item.RestaurantID
	} else {
		links["productId"] = item.ProductID
		links["warehouseId"] = item.WarehouseID
	}

	pruneEmpty(links)
	if len(links) > 0 {
		doc["links"] = links
	}
	pruneEmpty(doc)
	return doc
}

// createPaymentRecord writes the single payment document for the order. The
// provider is derived from the payment method; gateway callbacks mutate this
// record later.
func (s *OrderService) createPaymentRecord(ctx context.Context, orderID string, sub models.OrderSubmission, now time.Time) error {
	method := sub.PaymentMethod
	if method == "" {
		method = models.DefaultPaymentMethod
	}
	status := sub.PaymentStatus
	if status == "" {
		status = models.OrderStatusPending
	}

	doc := store.Document{
		"amount":               sub.FinalAmount,
		"method":               method,
		"provider":             paymentProvider(method),
		"status":               status,
		"timestamp":            now,
		"transactionId":        "",
		"gatewayTransactionId": "",
		"refundTransactionId":  "",
		"failureReason":        "",
		"customerId":           customerID(sub),
	}
	if _, err := s.store.Add(ctx, store.OrderPaymentPath(orderID), doc); err != nil {
		return fmt.Errorf("failed to write payment record for order %s: %w", orderID, err)
	}
	return nil
}

func paymentProvider(method string) string {
	switch method {
	case "Cash on Delivery":
		return "Cash"
	case "UPI":
		return "PhonePe"
	default:
		return "UPI"
	}
}

// createStatusHistory writes the initial append-only status log entry,
// mirroring the header's status and creation time.
func (s *OrderService) createStatusHistory(ctx context.Context, orderID string, header store.Document) error {
	status := store.AsString(header["status"])
	doc := store.Document{
		"status":     status,
		"timestamp":  header["createdAt"],
		"notes":      fmt.Sprintf("Order created with status: %s", status),
		"customerId": header["customerId"],
	}
	if _, err := s.store.Add(ctx, store.OrderStatusHistoryPath(orderID), doc); err != nil {
		return fmt.Errorf("failed to write status history for order %s: %w", orderID, err)
	}
	return nil
}

// publishOrderCreated emits an order.created event. Publishing is best-effort
// and failures are only logged.
func (s *OrderService) publishOrderCreated(orderID string, sub models.OrderSubmission, header store.Document, log *zap.Logger) {
	if s.mq == nil {
		return
	}
	event := map[string]any{
		"orderId":     orderID,
		"userId":      sub.UserID,
		"status":      header["status"],
		"finalAmount": sub.FinalAmount,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("failed to marshal order created event", zap.Error(err))
		return
	}
	if err := s.mq.PublishOrderCreated(body); err != nil {
		log.Warn("failed to publish order created event", zap.Error(err))
	}
}

// GetOrderByID returns the order header, or store.ErrNotFound.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID string) (store.Document, error) {
	return s.store.Get(ctx, store.OrdersPath, orderID)
}

// GetOrderItems lists the order's item documents.
func (s *OrderService) GetOrderItems(ctx context.Context, orderID string) ([]store.Document, error) {
	return s.store.Query(ctx, store.OrderItemsPath(orderID), nil)
}

func customerID(sub models.OrderSubmission) string {
	if sub.CustomerID != "" {
		return sub.CustomerID
	}
	return sub.UserID
}

// normalizeAddress coerces whatever address shape the caller supplied into
// the fixed persisted form, defaulting the geo point to (0,0) when absent.
func normalizeAddress(addr models.DeliveryAddress) store.Document {
	geo := store.Document{"latitude": float64(0), "longitude": float64(0)}
	if addr.Location != nil {
		geo["latitude"] = addr.Location.Latitude
		geo["longitude"] = addr.Location.Longitude
	}
	return store.Document{
		"addressId":     addr.AddressID,
		"contactName":   addr.ContactName,
		"contactPhone":  addr.ContactPhone,
		"line1":         addr.Line1,
		"line2":         addr.Line2,
		"city":          addr.City,
		"pincode":       addr.Pincode,
		"geoPoint":      geo,
		"saveForFuture": addr.SaveForFuture,
	}
}

// pruneEmpty drops keys whose value is an empty string or nil so they are
// absent from the stored document rather than persisted as placeholders.
func pruneEmpty(doc store.Document) {
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(doc, k)
		}
	}
}
