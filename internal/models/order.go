package models

// OrderSubmission is the flat checkout payload handed to the order split
// writer. It carries a cart snapshot plus delivery, payment, and pricing
// fields; the writer decomposes it into the order header and its
// subcollections.
type OrderSubmission struct {
	UserID          string           `json:"userId"`
	CustomerID      string           `json:"customerId"`
	RestaurantID    string           `json:"restaurantId"`
	DeliveryAddress DeliveryAddress  `json:"deliveryAddress"`
	DeliveryCharges float64          `json:"deliveryCharges"`
	Discount        float64          `json:"discount"`
	Taxes           float64          `json:"taxes"`
	TotalAmount     float64          `json:"totalAmount"`
	FinalAmount     float64          `json:"finalAmount"`
	PaymentMethod   string           `json:"paymentMethod"`
	PaymentStatus   string           `json:"paymentStatus"`
	Status          string           `json:"status"`
	AppliedCoupons  []AppliedCoupon  `json:"appliedCoupons"`
	Items           []SubmissionItem `json:"items" validate:"required,min=1,dive"`
	ScheduledFor    string           `json:"scheduledFor"`
	Instructions    string           `json:"instructions"`
}

// SubmissionItem is one cart line inside an order submission. Lines with a
// restaurantId become menu_item order items; lines with a warehouseId become
// product order items.
type SubmissionItem struct {
	MenuItemID     string   `json:"menuItemId"`
	ProductID      string   `json:"productId"`
	Name           string   `json:"name" validate:"required"`
	UnitPrice      float64  `json:"unitPrice" validate:"gte=0"`
	Quantity       int      `json:"quantity" validate:"required,gt=0"`
	RestaurantID   string   `json:"restaurantId"`
	WarehouseID    string   `json:"warehouseId"`
	ServiceID      string   `json:"serviceId"`
	Category       string   `json:"category"`
	Cuisine        string   `json:"cuisine"`
	ChefID         string   `json:"chefId"`
	PrepTime       int      `json:"prepTime"`
	Customizations []string `json:"customizations"`
}

// DeliveryAddress is the normalized address shape stored on the order header.
type DeliveryAddress struct {
	AddressID     string    `json:"addressId"`
	ContactName   string    `json:"contactName"`
	ContactPhone  string    `json:"contactPhone"`
	Line1         string    `json:"line1"`
	Line2         string    `json:"line2"`
	City          string    `json:"city"`
	Pincode       string    `json:"pincode"`
	Location      *GeoPoint `json:"location"`
	SaveForFuture bool      `json:"saveForFuture"`
}

// GeoPoint is the store's native geographic coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AppliedCoupon is the normalized coupon input. Callers have historically
// supplied the coupon identifier and discount under several different keys;
// the Resolve methods perform that fallback once, at the boundary.
type AppliedCoupon struct {
	ID              string   `json:"id"`
	CouponID        string   `json:"couponId"`
	Code            string   `json:"code"`
	DiscountAmount  *float64 `json:"discountAmount"`
	AppliedDiscount *float64 `json:"appliedDiscount"`
}

// UnknownCouponID marks a coupon whose identifier could not be resolved.
// Usage records are never written for it.
const UnknownCouponID = "unknown"

// ResolveID returns the coupon identifier: id, then couponId, then code,
// then UnknownCouponID.
func (c AppliedCoupon) ResolveID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.CouponID != "":
		return c.CouponID
	case c.Code != "":
		return c.Code
	}
	return UnknownCouponID
}

// ResolveDiscount returns the discount for this coupon, falling back to the
// order-level discount when the coupon carries none of its own.
func (c AppliedCoupon) ResolveDiscount(orderDiscount float64) float64 {
	if c.DiscountAmount != nil {
		return *c.DiscountAmount
	}
	if c.AppliedDiscount != nil {
		return *c.AppliedDiscount
	}
	return orderDiscount
}

// CouponFailure records one coupon whose usage tracking failed during order
// creation. Failures here never abort the order.
type CouponFailure struct {
	CouponID string `json:"couponId"`
	Reason   string `json:"reason"`
}

// OrderResult is what SplitAndStoreOrder hands back to the caller.
type OrderResult struct {
	OrderID        string          `json:"orderId"`
	CouponFailures []CouponFailure `json:"couponFailures,omitempty"`
}

const (
	OrderStatusPending   = "pending"
	ItemTypeMenuItem     = "menu_item"
	ItemTypeProduct      = "product"
	DefaultPaymentMethod = "UPI"
)
