package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// orderSortColumns are the orders columns a buyer may sort their history by
var orderSortColumns = map[string]bool{
	"created_at":   true,
	"order_number": true,
	"status":       true,
	"subtotal":     true,
	"total":        true,
}

// orderSort builds the ORDER BY of a buyer's order list. Unknown columns fall
// back to created_at and anything but "asc" sorts descending. id breaks ties so
// consecutive pages never share a row.
func orderSort(orderBy, orderDir string) clause.OrderBy {
	column := strings.ToLower(strings.TrimSpace(orderBy))
	if !orderSortColumns[column] {
		column = "created_at"
	}
	desc := !strings.EqualFold(strings.TrimSpace(orderDir), "asc")

	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
