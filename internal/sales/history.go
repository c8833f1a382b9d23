// Package sales converts a validated cart into permanent sales and keeps their ledger.
package sales

import (
	"sync"
	"time"

	"github.com/abgdnv/salesdesk/internal/cart"
	"github.com/google/uuid"
)

// Sale is a committed, immutable sale record.
type Sale struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Lines     []cart.Line `json:"lines"`
	Total     int64       `json:"total"` // cents, sum of line subtotals
}

// History is the append-only ledger of committed sales. Nothing in the core
// mutates or removes an appended sale; insertion order is preserved.
type History struct {
	mu    sync.RWMutex
	sales []Sale
}

// NewHistory creates an empty sale history.
func NewHistory() *History {
	return &History{}
}

// Append adds a committed sale to the end of the ledger.
func (h *History) Append(sale Sale) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sales = append(h.sales, sale)
}

// List returns a copy of all sales in insertion order.
func (h *History) List() []Sale {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := make([]Sale, len(h.sales))
	copy(list, h.sales)
	return list
}

// Len reports the number of committed sales.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sales)
}

// TotalRevenue sums the totals of all committed sales.
func (h *History) TotalRevenue() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var total int64
	for _, sale := range h.sales {
		total += sale.Total
	}
	return total
}

// Load replaces the ledger contents with persisted sales.
func (h *History) Load(sales []Sale) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sales = make([]Sale, len(sales))
	copy(h.sales, sales)
}
