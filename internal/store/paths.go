package store

// Collection path conventions. These mirror the layout the mobile clients and
// downstream consumers already read, so they must stay stable.

const OrdersPath = "orders"

func UserCartPath(userID string) string {
	return "users/" + userID + "/cart"
}

func CartItemsPath(userID, cartID string) string {
	return "users/" + userID + "/cart/" + cartID + "/cart_items"
}

func CouponUsagePath(userID string) string {
	return "users/" + userID + "/coupon_usage"
}

func OrderItemsPath(orderID string) string {
	return OrdersPath + "/" + orderID + "/order_items"
}

func OrderPaymentPath(orderID string) string {
	return OrdersPath + "/" + orderID + "/payment"
}

func OrderStatusHistoryPath(orderID string) string {
	return OrdersPath + "/" + orderID + "/status_history"
}

func MenuItemsPath(restaurantID string) string {
	return "restaurants/" + restaurantID + "/menu_items"
}
