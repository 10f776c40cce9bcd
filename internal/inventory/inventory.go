// Package inventory validates requested quantities against known stock.
//
// CanAccept and CanIncrease disagree on untracked stock: CanAccept lets a nil
// inventory through while CanIncrease treats it as zero capacity. Both
// behaviors are kept as-is pending a product decision.
package inventory

import (
	"fmt"

	"github.com/alextreichler/vendormarket/internal/models"
)

// LowStockThreshold is the exclusive upper bound of the low-stock band.
const LowStockThreshold = 5

// ExceededError rejects a quantity above the remaining stock.
type ExceededError struct {
	Requested int
	Available int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("only %d left in stock (requested %d)", e.Available, e.Requested)
}

// CanAccept reports whether requested fits within inventory. A nil inventory
// is unconstrained.
func CanAccept(requested int, inventory *int) bool {
	if inventory == nil {
		return true
	}
	return requested <= *inventory
}

// Check is CanAccept returning an *ExceededError on rejection.
func Check(requested int, inventory *int) error {
	if CanAccept(requested, inventory) {
		return nil
	}
	return &ExceededError{Requested: requested, Available: *inventory}
}

// CanIncrease reports whether one more unit can be added to line. A nil
// inventory counts as zero.
func CanIncrease(line models.CartLine) bool {
	capacity := 0
	if line.Inventory != nil {
		capacity = *line.Inventory
	}
	return line.Quantity < capacity
}

type Report struct {
	OutOfStock []models.CartLine
	LowStock   []models.CartLine
}

func (r Report) IsValid() bool { return len(r.OutOfStock) == 0 }

// Classify buckets lines by stock level. Lines without tracked stock are
// left unclassified.
func Classify(lines []models.CartLine) Report {
	var r Report
	for _, l := range lines {
		if l.Inventory == nil {
			continue
		}
		switch inv := *l.Inventory; {
		case inv == 0:
			r.OutOfStock = append(r.OutOfStock, l)
		case inv > 0 && inv < LowStockThreshold:
			r.LowStock = append(r.LowStock, l)
		}
	}
	return r
}
