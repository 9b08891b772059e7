package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the payout state of a vendor transaction
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSettled TransactionStatus = "SETTLED"
)

// Transaction is the store's financial share of one order
type Transaction struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	StoreID uuid.UUID
	// Amount is the store's subtotal + tax + shipping
	Amount         decimal.Decimal
	CommissionRate decimal.Decimal
	Commission     decimal.Decimal
	VendorEarnings decimal.Decimal
	Status         TransactionStatus
	SettledAt      *time.Time
	CreatedAt      time.Time
}

// NewTransaction splits amount between platform commission and vendor earnings
func NewTransaction(storeID uuid.UUID, amount, commissionRate decimal.Decimal) (*Transaction, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Transaction needs a store")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount cannot be negative")
	}
	amount = valueobject.RoundMoney(amount)
	commission := valueobject.RoundMoney(valueobject.Percent(amount, commissionRate))
	return &Transaction{
		ID:             uuid.New(),
		StoreID:        storeID,
		Amount:         amount,
		CommissionRate: commissionRate,
		Commission:     commission,
		VendorEarnings: amount.Sub(commission),
		Status:         TransactionPending,
		CreatedAt:      time.Now(),
	}, nil
}

// Settle marks the vendor as paid out. It is the only allowed transition.
func (t *Transaction) Settle(at time.Time) error {
	if t.Status != TransactionPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending transactions can be settled")
	}
	t.Status = TransactionSettled
	t.SettledAt = &at
	return nil
}
