package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shippingInfo() ShippingInfo {
	return ShippingInfo{RecipientName: "Ayesha", AddressLine: "12 Mall Road", City: "Lahore", Province: "Punjab", Zone: "PK", Method: "standard"}
}

func TestNewOrder(t *testing.T) {
	t.Run("creates placed order with number", func(t *testing.T) {
		o, err := NewOrder(uuid.New(), shippingInfo(), PaymentCashOnDelivery, "")
		require.NoError(t, err)
		assert.Equal(t, StatusPlaced, o.Status)
		assert.Equal(t, valueobject.PKR, o.Currency)
		assert.Regexp(t, `^MKT-\d{8}-[0-9A-F]{8}$`, o.OrderNumber)
		assert.False(t, o.IsGuest())
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), shippingInfo(), "BARTER", valueobject.PKR)
		assert.Error(t, err)
	})

	t.Run("requires an address", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), ShippingInfo{}, PaymentCard, valueobject.PKR)
		assert.Error(t, err)
	})
}

func TestGenerateOrderNumber(t *testing.T) {
	id := uuid.MustParse("1a2b3c4d-0000-0000-0000-000000000000")
	at := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "MKT-20260301-1A2B3C4D", GenerateOrderNumber(id, at))
}

func TestOrder_AddItem(t *testing.T) {
	o, _ := NewOrder(uuid.Nil, shippingInfo(), PaymentCard, valueobject.PKR)

	storeA, storeB := uuid.New(), uuid.New()
	require.NoError(t, o.AddItem(Item{StoreID: storeA, ProductID: uuid.New(), Quantity: 1}))
	require.NoError(t, o.AddItem(Item{StoreID: storeB, ProductID: uuid.New(), Quantity: 2}))
	require.NoError(t, o.AddItem(Item{StoreID: storeA, ProductID: uuid.New(), Quantity: 1}))
	assert.Error(t, o.AddItem(Item{StoreID: storeA, ProductID: uuid.New(), Quantity: 0}))
	assert.Error(t, o.AddItem(Item{ProductID: uuid.New(), Quantity: 1}))

	require.Len(t, o.Items, 3)
	assert.Equal(t, storeB, o.Items[1].StoreID)
	for _, it := range o.Items {
		assert.Equal(t, o.ID, it.OrderID)
		assert.NotEqual(t, uuid.Nil, it.ID)
	}
}

func TestOrder_SetTotals(t *testing.T) {
	o, _ := NewOrder(uuid.New(), shippingInfo(), PaymentCard, valueobject.PKR)
	o.SetTotals(decimal.NewFromInt(900), decimal.NewFromInt(45), decimal.NewFromInt(150))
	assert.Equal(t, "1095.00", o.Total.StringFixed(2))
}

func TestOrder_AddTransaction(t *testing.T) {
	o, _ := NewOrder(uuid.New(), shippingInfo(), PaymentCard, valueobject.PKR)
	store := uuid.New()
	tx, err := NewTransaction(store, decimal.NewFromInt(1095), decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, o.AddTransaction(*tx))
	assert.Error(t, o.AddTransaction(*tx))
	assert.Equal(t, o.ID, o.Transactions[0].OrderID)
}

func TestNewTransaction(t *testing.T) {
	tx, err := NewTransaction(uuid.New(), decimal.RequireFromString("1095"), decimal.RequireFromString("7.5"))
	require.NoError(t, err)
	assert.Equal(t, "82.13", tx.Commission.StringFixed(2))
	assert.Equal(t, "1012.87", tx.VendorEarnings.StringFixed(2))
	assert.True(t, tx.Commission.Add(tx.VendorEarnings).Equal(tx.Amount))
	assert.Equal(t, TransactionPending, tx.Status)

	_, err = NewTransaction(uuid.Nil, decimal.NewFromInt(1), decimal.Zero)
	assert.Error(t, err)
	_, err = NewTransaction(uuid.New(), decimal.NewFromInt(-1), decimal.Zero)
	assert.Error(t, err)
}

func TestTransaction_Settle(t *testing.T) {
	tx, _ := NewTransaction(uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(10))
	now := time.Now()
	require.NoError(t, tx.Settle(now))
	assert.Equal(t, TransactionSettled, tx.Status)
	assert.Equal(t, &now, tx.SettledAt)
	assert.Error(t, tx.Settle(now))
}
