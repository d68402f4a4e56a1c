package services_test

import (
	"context"
	"math"
	"testing"

	"kiranakart/internal/services"
	"kiranakart/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockGateway is a testify mock of store.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Get(ctx context.Context, path, id string) (store.Document, error) {
	args := m.Called(ctx, path, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(store.Document), args.Error(1)
}

func (m *MockGateway) Set(ctx context.Context, path, id string, doc store.Document) error {
	args := m.Called(ctx, path, id, doc)
	return args.Error(0)
}

func (m *MockGateway) Add(ctx context.Context, path string, doc store.Document) (string, error) {
	args := m.Called(ctx, path, doc)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Update(ctx context.Context, path, id string, fields store.Document) error {
	args := m.Called(ctx, path, id, fields)
	return args.Error(0)
}

func (m *MockGateway) Delete(ctx context.Context, path, id string) error {
	args := m.Called(ctx, path, id)
	return args.Error(0)
}

func (m *MockGateway) Query(ctx context.Context, path string, filters []store.Filter) ([]store.Document, error) {
	args := m.Called(ctx, path, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Document), args.Error(1)
}

func (m *MockGateway) RunTransaction(ctx context.Context, path, id string, fn func(doc store.Document) (store.Document, error)) error {
	args := m.Called(ctx, path, id, fn)
	return args.Error(0)
}

func TestCouponService_AddCouponUsage_InvalidInputIsSilentNoOp(t *testing.T) {
	cases := []struct {
		name     string
		userID   string
		couponID string
		orderID  string
		discount float64
	}{
		{"missing user", "", "SAVE50", "ORD_123456789", 50},
		{"missing coupon", "user-1", "", "ORD_123456789", 50},
		{"unknown coupon", "user-1", "unknown", "ORD_123456789", 50},
		{"missing order", "user-1", "SAVE50", "", 50},
		{"NaN discount", "user-1", "SAVE50", "ORD_123456789", math.NaN()},
		{"infinite discount", "user-1", "SAVE50", "ORD_123456789", math.Inf(1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockGw := new(MockGateway)
			svc := services.NewCouponService(mockGw, zap.NewNop())

			err := svc.AddCouponUsage(context.Background(), tc.userID, tc.couponID, tc.orderID, tc.discount)

			assert.NoError(t, err, "invalid input must not surface an error")
			mockGw.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCouponService_AddCouponUsage_WritesOneRecord(t *testing.T) {
	gw := store.NewMemoryGateway()
	svc := services.NewCouponService(gw, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.AddCouponUsage(ctx, "user-1", "SAVE50", "ORD_123456789", 50))

	usages, err := gw.Query(ctx, store.CouponUsagePath("user-1"), nil)
	require.NoError(t, err)
	require.Len(t, usages, 1)

	usage := usages[0]
	assert.Equal(t, "user-1", usage["userId"])
	assert.Equal(t, "SAVE50", usage["couponId"])
	assert.Equal(t, "ORD_123456789", usage["orderId"])
	assert.Equal(t, 50.0, store.AsFloat(usage["discountAmount"]))
	assert.Equal(t, "used", usage["status"])
	assert.NotEmpty(t, usage["usageId"])
}

func TestCouponService_AddCouponUsage_NoDuplicateDetection(t *testing.T) {
	gw := store.NewMemoryGateway()
	svc := services.NewCouponService(gw, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.AddCouponUsage(ctx, "user-1", "SAVE50", "ORD_123456789", 50))
	require.NoError(t, svc.AddCouponUsage(ctx, "user-1", "SAVE50", "ORD_123456789", 50))

	usages, err := gw.Query(ctx, store.CouponUsagePath("user-1"), nil)
	require.NoError(t, err)
	assert.Len(t, usages, 2, "identical calls create separate records")
}
