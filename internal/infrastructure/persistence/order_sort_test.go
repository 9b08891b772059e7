package persistence

import (
	"testing"

	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestOrderSort(t *testing.T) {
	db, _, _ := newMockDatabase(t)

	tests := []struct {
		name     string
		orderBy  string
		orderDir string
		want     string
	}{
		{"defaults to newest first", "", "", `ORDER BY "created_at" DESC,"id" DESC`},
		{"ascending total", "total", "asc", `ORDER BY "total" ASC,"id" ASC`},
		{"direction is case insensitive", " Order_Number ", "ASC", `ORDER BY "order_number" ASC,"id" ASC`},
		{"unknown column", "buyer_id", "asc", `ORDER BY "created_at" ASC,"id" ASC`},
		{"injection in column", "total; DROP TABLE orders", "desc", `ORDER BY "created_at" DESC,"id" DESC`},
		{"injection in direction", "total", "asc; DROP TABLE orders", `ORDER BY "total" DESC,"id" DESC`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := db.DB.Session(&gorm.Session{DryRun: true}).
				Order(orderSort(tt.orderBy, tt.orderDir)).
				Find(&[]models.OrderModel{}).Statement

			assert.Contains(t, stmt.SQL.String(), tt.want)
		})
	}
}
