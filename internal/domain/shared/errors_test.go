package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_MatchesByCode(t *testing.T) {
	missingOrder := NewDomainError("NOT_FOUND", "Order ORD-1 not found")
	wrapped := fmt.Errorf("get order: %w", missingOrder)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrEmptyCart)
	assert.NotErrorIs(t, errors.New("NOT_FOUND"), ErrNotFound)
	assert.True(t, IsDomainError(wrapped, "NOT_FOUND"))
	assert.False(t, IsDomainError(wrapped, "EMPTY_CART"))
	assert.False(t, IsDomainError(nil, "NOT_FOUND"))
}

func TestNewPaginated(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantPages int
	}{
		{"empty", 0, 20, 0},
		{"exact pages", 40, 20, 2},
		{"partial last page", 41, 20, 3},
		{"no page size", 41, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginated([]string{}, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, Filter{Page: 0, PageSize: 20}.Offset())
	assert.Equal(t, 0, DefaultFilter().Offset())
	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
}
