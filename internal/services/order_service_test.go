package services_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"kiranakart/internal/models"
	"kiranakart/internal/services"
	"kiranakart/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrderFixture(gw store.Gateway) *services.OrderService {
	log := zap.NewNop()
	carts := services.NewCartService(gw, log)
	coupons := services.NewCouponService(gw, log)
	return services.NewOrderService(gw, carts, coupons, nil, log)
}

func discountPtr(v float64) *float64 { return &v }

// threeItemSubmission is the canonical checkout: two restaurant lines, one
// warehouse line, one coupon.
func threeItemSubmission() models.OrderSubmission {
	return models.OrderSubmission{
		UserID:       "user-1",
		RestaurantID: "rest-1",
		DeliveryAddress: models.DeliveryAddress{
			ContactName:  "Asha",
			ContactPhone: "9876543210",
			Line1:        "12 MG Road",
			City:         "Bengaluru",
			Pincode:      "560001",
			Location:     &models.GeoPoint{Latitude: 12.97, Longitude: 77.59},
		},
		DeliveryCharges: 40,
		Discount:        50,
		Taxes:           18,
		TotalAmount:     730,
		FinalAmount:     738,
		PaymentMethod:   "UPI",
		AppliedCoupons: []models.AppliedCoupon{
			{Code: "SAVE50", DiscountAmount: discountPtr(50)},
		},
		Items: []models.SubmissionItem{
			{
				MenuItemID:   "menu-1",
				Name:         "Paneer Tikka",
				UnitPrice:    250,
				Quantity:     1,
				RestaurantID: "rest-1",
				ServiceID:    "svc-food",
				Cuisine:      "North Indian",
				ChefID:       "chef-7",
				PrepTime:     20,
			},
			{
				MenuItemID:   "menu-2",
				Name:         "Butter Naan",
				UnitPrice:    60,
				Quantity:     3,
				RestaurantID: "rest-1",
				ServiceID:    "svc-food",
				Cuisine:      "North Indian",
				ChefID:       "chef-7",
				Category:     "Main",
			},
			{
				ProductID:   "prod-9",
				Name:        "Mango Lassi 1L",
				UnitPrice:   150,
				Quantity:    2,
				WarehouseID: "wh-3",
				ServiceID:   "svc-grocery",
				Category:    "Beverages",
			},
		},
	}
}

func TestGenerateOrderID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD_\d{9}$`)
	for i := 0; i < 100; i++ {
		id := services.GenerateOrderID()
		assert.True(t, pattern.MatchString(id), "unexpected order id %q", id)
	}
}

func TestOrderService_SplitAndStoreOrder(t *testing.T) {
	gw := store.NewMemoryGateway()
	svc := newOrderFixture(gw)
	ctx := context.Background()

	// Seed the active cart the checkout consumes.
	carts := services.NewCartService(gw, zap.NewNop())
	cartID, err := carts.CreateCart(ctx, "user-1")
	require.NoError(t, err)

	result, err := svc.SplitAndStoreOrder(ctx, threeItemSubmission())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Regexp(t, `^ORD_\d{9}$`, result.OrderID)
	assert.Empty(t, result.CouponFailures)

	// Header.
	header, err := gw.Get(ctx, store.OrdersPath, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, result.OrderID, header["orderId"])
	assert.Equal(t, "user-1", header["userId"])
	assert.Equal(t, "user-1", header["customerId"])
	assert.Equal(t, "pending", header["status"])
	assert.Equal(t, "UPI", header["paymentMethod"])
	assert.Equal(t, 738.0, store.AsFloat(header["finalAmount"]))

	address, ok := header["deliveryAddress"].(store.Document)
	require.True(t, ok)
	assert.Equal(t, "560001", address["pincode"])
	geo, ok := address["geoPoint"].(store.Document)
	require.True(t, ok)
	assert.Equal(t, 12.97, store.AsFloat(geo["latitude"]))

	// Items: two menu items, one product.
	items, err := gw.Query(ctx, store.OrderItemsPath(result.OrderID), nil)
	require.NoError(t, err)
	require.Len(t, items, 3)

	menuItems := 0
	productItems := 0
	for _, item := range items {
		switch item["type"] {
		case models.ItemTypeMenuItem:
			menuItems++
			assert.Equal(t, "chef-7", item["chefId"])
			assert.Equal(t, "North Indian", item["cuisine"])
			links, ok := item["links"].(store.Document)
			require.True(t, ok)
			assert.Equal(t, "rest-1", links["restaurantId"])
			assert.NotContains(t, links, "warehouseId")
		case models.ItemTypeProduct:
			productItems++
			links, ok := item["links"].(store.Document)
			require.True(t, ok)
			assert.Equal(t, "wh-3", links["warehouseId"])
			assert.Equal(t, "prod-9", links["productId"])
		}
		assert.Equal(t, store.AsFloat(item["unitPrice"])*float64(store.AsInt(item["quantity"])), store.AsFloat(item["totalPrice"]))
	}
	assert.Equal(t, 2, menuItems)
	assert.Equal(t, 1, productItems)

	// Payment: provider derived from the method.
	payments, err := gw.Query(ctx, store.OrderPaymentPath(result.OrderID), nil)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "PhonePe", payments[0]["provider"])
	assert.Equal(t, "UPI", payments[0]["method"])
	assert.Equal(t, 738.0, store.AsFloat(payments[0]["amount"]))

	// Status history: exactly the initial entry.
	history, err := gw.Query(ctx, store.OrderStatusHistoryPath(result.OrderID), nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "pending", history[0]["status"])
	assert.Equal(t, "Order created with status: pending", history[0]["notes"])

	// Coupon usage: one record for the applied coupon.
	usages, err := gw.Query(ctx, store.CouponUsagePath("user-1"), nil)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "SAVE50", usages[0]["couponId"])
	assert.Equal(t, result.OrderID, usages[0]["orderId"])
	assert.Equal(t, 50.0, store.AsFloat(usages[0]["discountAmount"]))

	// Source cart is consumed.
	cartDoc, err := gw.Get(ctx, store.UserCartPath("user-1"), cartID)
	require.NoError(t, err)
	assert.Equal(t, models.CartStatusInactive, cartDoc["status"])
	assert.Equal(t, true, cartDoc["usedForOrder"])
}

func TestOrderService_SplitAndStoreOrder_Defaults(t *testing.T) {
	gw := store.NewMemoryGateway()
	svc := newOrderFixture(gw)
	ctx := context.Background()

	sub := models.OrderSubmission{
		UserID: "user-2",
		Items: []models.SubmissionItem{
			{ProductID: "prod-1", Name: "Atta 10kg", UnitPrice: 400, Quantity: 1, WarehouseID: "wh-1"},
		},
	}
	result, err := svc.SplitAndStoreOrder(ctx, sub)
	require.NoError(t, err)

	header, err := gw.Get(ctx, store.OrdersPath, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pending", header["status"])
	assert.Equal(t, "UPI", header["paymentMethod"])
	assert.Equal(t, 0.0, store.AsFloat(header["finalAmount"]))
	assert.Equal(t, 0.0, store.AsFloat(header["deliveryCharges"]))

	address, ok := header["deliveryAddress"].(store.Document)
	require.True(t, ok)
	geo, ok := address["geoPoint"].(store.Document)
	require.True(t, ok)
	assert.Equal(t, 0.0, store.AsFloat(geo["latitude"]))
	assert.Equal(t, 0.0, store.AsFloat(geo["longitude"]))

	payments, err := gw.Query(ctx, store.OrderPaymentPath(result.OrderID), nil)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "PhonePe", payments[0]["provider"], "defaulted UPI method maps to PhonePe")
}

func TestOrderService_PaymentProviderMapping(t *testing.T) {
	cases := []struct {
		method   string
		provider string
	}{
		{"Cash on Delivery", "Cash"},
		{"UPI", "PhonePe"},
		{"NetBanking", "UPI"},
	}

	for _, tc := range cases {
		gw := store.NewMemoryGateway()
		svc := newOrderFixture(gw)

		sub := models.OrderSubmission{
			UserID:        "user-3",
			PaymentMethod: tc.method,
			Items: []models.SubmissionItem{
				{ProductID: "prod-1", Name: "Atta", UnitPrice: 400, Quantity: 1, WarehouseID: "wh-1"},
			},
		}
		result, err := svc.SplitAndStoreOrder(context.Background(), sub)
		require.NoError(t, err)

		payments, err := gw.Query(context.Background(), store.OrderPaymentPath(result.OrderID), nil)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, tc.provider, payments[0]["provider"], "method %q", tc.method)
	}
}

func TestOrderService_ProductItemPruning(t *testing.T) {
	gw := store.NewMemoryGateway()
	svc := newOrderFixture(gw)
	ctx := context.Background()

	sub := models.OrderSubmission{
		UserID: "user-4",
		Items: []models.SubmissionItem{
			// A warehouse product with no link fields at all.
			{Name: "Loose Jaggery", UnitPrice: 80, Quantity: 1},
		},
	}
	result, err := svc.SplitAndStoreOrder(ctx, sub)
	require.NoError(t, err)

	items, err := gw.Query(ctx, store.OrderItemsPath(result.OrderID), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, models.ItemTypeProduct, item["type"])
	assert.Equal(t, "General", item["category"])
	assert.NotContains(t, item, "chefId")
	assert.NotContains(t, item, "cuisine")
	assert.NotContains(t, item, "prepTime")
	assert.NotContains(t, item, "links", "empty links object must be dropped")
	assert.NotContains(t, item, "customizations")
}

func TestOrderService_UnresolvableCouponIsSkipped(t *testing.T) {
	gw := store.NewMemoryGateway()
	svc := newOrderFixture(gw)
	ctx := context.Background()

	sub := models.OrderSubmission{
		UserID: "user-5",
		AppliedCoupons: []models.AppliedCoupon{
			{}, // no id, couponId, or code
		},
		Items: []models.SubmissionItem{
			{ProductID: "prod-1", Name: "Atta", UnitPrice: 400, Quantity: 1, WarehouseID: "wh-1"},
		},
	}
	result, err := svc.SplitAndStoreOrder(ctx, sub)
	require.NoError(t, err)
	assert.Empty(t, result.CouponFailures, "skipped coupons are not failures")

	usages, err := gw.Query(ctx, store.CouponUsagePath("user-5"), nil)
	require.NoError(t, err)
	assert.Empty(t, usages)
}

// failingCouponStore fails every write under a coupon_usage path and passes
// everything else through.
type failingCouponStore struct {
	store.Gateway
}

func (f *failingCouponStore) Set(ctx context.Context, path, id string, doc store.Document) error {
	if strings.Contains(path, "coupon_usage") {
		return errors.New("store unavailable")
	}
	return f.Gateway.Set(ctx, path, id, doc)
}

func TestOrderService_CouponFailuresAreCollected(t *testing.T) {
	gw := &failingCouponStore{Gateway: store.NewMemoryGateway()}
	svc := newOrderFixture(gw)
	ctx := context.Background()

	sub := threeItemSubmission()
	result, err := svc.SplitAndStoreOrder(ctx, sub)
	require.NoError(t, err, "coupon tracking failures must not abort the order")
	require.Len(t, result.CouponFailures, 1)
	assert.Equal(t, "SAVE50", result.CouponFailures[0].CouponID)
	assert.Contains(t, result.CouponFailures[0].Reason, "store unavailable")

	// The order itself still exists in full.
	_, err = gw.Get(ctx, store.OrdersPath, result.OrderID)
	require.NoError(t, err)
	items, err := gw.Query(ctx, store.OrderItemsPath(result.OrderID), nil)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestAppliedCoupon_Resolution(t *testing.T) {
	assert.Equal(t, "c1", models.AppliedCoupon{ID: "c1", CouponID: "c2", Code: "c3"}.ResolveID())
	assert.Equal(t, "c2", models.AppliedCoupon{CouponID: "c2", Code: "c3"}.ResolveID())
	assert.Equal(t, "c3", models.AppliedCoupon{Code: "c3"}.ResolveID())
	assert.Equal(t, models.UnknownCouponID, models.AppliedCoupon{}.ResolveID())

	assert.Equal(t, 10.0, models.AppliedCoupon{DiscountAmount: discountPtr(10), AppliedDiscount: discountPtr(20)}.ResolveDiscount(30))
	assert.Equal(t, 20.0, models.AppliedCoupon{AppliedDiscount: discountPtr(20)}.ResolveDiscount(30))
	assert.Equal(t, 30.0, models.AppliedCoupon{}.ResolveDiscount(30))
}
