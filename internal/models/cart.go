package models

import (
	"time"

	"kiranakart/internal/store"
)

// Cart is the per-user mutable staging area of selected items prior to
// checkout. One cart per user is "active" at a time by convention; consuming
// an order flips it to inactive.
type Cart struct {
	CartID        string         `json:"cartId"`
	UserID        string         `json:"userId"`
	ItemCount     int            `json:"itemCount"`
	TotalAmount   float64        `json:"totalAmount"`
	Status        string         `json:"status"` // "active" or "inactive"
	DeliveryType  string         `json:"deliveryType"`
	AppliedCoupon store.Document `json:"appliedCoupon,omitempty"`
	RestaurantID  string         `json:"restaurantId"`
	ServiceID     string         `json:"serviceId"`
	WarehouseID   string         `json:"warehouseId"`
	AddedAt       time.Time      `json:"addedAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	UsedForOrder  bool           `json:"usedForOrder"`
}

const (
	CartStatusActive   = "active"
	CartStatusInactive = "inactive"
)

// Document flattens the cart into its persisted shape.
func (c *Cart) Document() store.Document {
	doc := store.Document{
		"cartId":       c.CartID,
		"userId":       c.UserID,
		"itemCount":    c.ItemCount,
		"totalAmount":  c.TotalAmount,
		"status":       c.Status,
		"deliveryType": c.DeliveryType,
		"restaurantId": c.RestaurantID,
		"serviceId":    c.ServiceID,
		"warehouseId":  c.WarehouseID,
		"addedAt":      c.AddedAt,
		"updatedAt":    c.UpdatedAt,
		"usedForOrder": c.UsedForOrder,
	}
	if c.AppliedCoupon != nil {
		doc["appliedCoupon"] = c.AppliedCoupon
	}
	return doc
}

// CartFromDocument rebuilds a Cart from its persisted shape.
func CartFromDocument(doc store.Document) *Cart {
	cart := &Cart{
		CartID:       store.AsString(doc["cartId"]),
		UserID:       store.AsString(doc["userId"]),
		ItemCount:    store.AsInt(doc["itemCount"]),
		TotalAmount:  store.AsFloat(doc["totalAmount"]),
		Status:       store.AsString(doc["status"]),
		DeliveryType: store.AsString(doc["deliveryType"]),
		RestaurantID: store.AsString(doc["restaurantId"]),
		ServiceID:    store.AsString(doc["serviceId"]),
		WarehouseID:  store.AsString(doc["warehouseId"]),
		UsedForOrder: store.AsBool(doc["usedForOrder"]),
	}
	if t, ok := doc["addedAt"].(time.Time); ok {
		cart.AddedAt = t
	}
	if t, ok := doc["updatedAt"].(time.Time); ok {
		cart.UpdatedAt = t
	}
	if coupon, ok := doc["appliedCoupon"].(store.Document); ok {
		cart.AppliedCoupon = coupon
	}
	return cart
}

// CartItem is a single line in a cart. TotalPrice is always price*quantity;
// UpdateCartTotals derives the cart aggregates from these lines.
type CartItem struct {
	ItemID         string    `json:"itemId"`
	UserID         string    `json:"userId"`
	ProductID      string    `json:"productId"`
	MenuItemID     string    `json:"menuItemId"`
	Name           string    `json:"name" validate:"required"`
	Price          float64   `json:"price" validate:"required,gt=0"`
	Quantity       int       `json:"quantity"`
	TotalPrice     float64   `json:"totalPrice"`
	Customizations []string  `json:"customizations,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	AddedAt        time.Time `json:"addedAt"`
}

func (i *CartItem) Document() store.Document {
	return store.Document{
		"itemId":         i.ItemID,
		"userId":         i.UserID,
		"productId":      i.ProductID,
		"menuItemId":     i.MenuItemID,
		"name":           i.Name,
		"price":          i.Price,
		"quantity":       i.Quantity,
		"totalPrice":     i.TotalPrice,
		"customizations": i.Customizations,
		"notes":          i.Notes,
		"addedAt":        i.AddedAt,
	}
}

func CartItemFromDocument(doc store.Document) *CartItem {
	item := &CartItem{
		ItemID:     store.AsString(doc["itemId"]),
		UserID:     store.AsString(doc["userId"]),
		ProductID:  store.AsString(doc["productId"]),
		MenuItemID: store.AsString(doc["menuItemId"]),
		Name:       store.AsString(doc["name"]),
		Price:      store.AsFloat(doc["price"]),
		Quantity:   store.AsInt(doc["quantity"]),
		TotalPrice: store.AsFloat(doc["totalPrice"]),
		Notes:      store.AsString(doc["notes"]),
	}
	if t, ok := doc["addedAt"].(time.Time); ok {
		item.AddedAt = t
	}
	switch c := doc["customizations"].(type) {
	case []string:
		item.Customizations = c
	case []any:
		for _, v := range c {
			item.Customizations = append(item.Customizations, store.AsString(v))
		}
	}
	return item
}
