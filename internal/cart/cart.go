// Package cart manages the draft of an in-progress sale.
package cart

import (
	"fmt"
	"sync"

	"github.com/abgdnv/salesdesk/internal/catalog"
	carterrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/google/uuid"
)

// Catalog is the read surface of the catalog store the cart validates against.
type Catalog interface {
	Product(id uuid.UUID) (*catalog.Product, error)
	Kit(id uuid.UUID) (*catalog.Kit, error)
	AvailableUnits(kind catalog.Kind, id uuid.UUID) (int32, error)
}

// Line is one item of the draft. Its identity is (RefID, Kind); a cart holds
// at most one line per identity. UnitPrice is snapshotted when the line is
// first added and is not re-read from the catalog on later quantity changes.
type Line struct {
	RefID     uuid.UUID    `json:"ref_id"`
	Kind      catalog.Kind `json:"kind"`
	Name      string       `json:"name"`
	UnitPrice int64        `json:"unit_price"` // cents, snapshot at first add
	Quantity  int32        `json:"quantity"`
	Subtotal  int64        `json:"subtotal"` // cents
}

// Subtotal computes a line subtotal. Every read site uses this one function
// so stored and displayed amounts cannot drift.
func Subtotal(unitPrice int64, quantity int32) int64 {
	return unitPrice * int64(quantity)
}

// Manager accumulates lines for one in-progress sale, validating every
// addition against current availability.
type Manager struct {
	mu      sync.Mutex
	catalog Catalog
	lines   []Line
}

// NewManager creates an empty cart over the given catalog.
func NewManager(cat Catalog) *Manager {
	return &Manager{catalog: cat}
}

// Add puts quantity units of the referenced item into the cart, merging with
// an existing line for the same (id, kind). The proposed line total is
// checked against current availability; on failure the cart is unchanged.
func (m *Manager) Add(kind catalog.Kind, id uuid.UUID, quantity int32) (*Line, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", carterrors.ErrInvalidInput)
	}

	name, unitPrice, err := m.resolve(kind, id)
	if err != nil {
		return nil, err
	}
	available, err := m.catalog.AvailableUnits(kind, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	proposed := quantity
	existing := m.findLocked(kind, id)
	if existing >= 0 {
		proposed += m.lines[existing].Quantity
	}
	if proposed > available {
		return nil, fmt.Errorf("%q has %d available, %d requested: %w",
			name, available, proposed, carterrors.ErrInsufficientStock)
	}

	if existing >= 0 {
		line := &m.lines[existing]
		line.Quantity = proposed
		line.Subtotal = Subtotal(line.UnitPrice, proposed)
		result := *line
		return &result, nil
	}

	line := Line{
		RefID:     id,
		Kind:      kind,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  proposed,
		Subtotal:  Subtotal(unitPrice, proposed),
	}
	m.lines = append(m.lines, line)
	return &line, nil
}

// Remove deletes the line for (id, kind). Removing an absent line is a no-op.
func (m *Manager) Remove(kind catalog.Kind, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.findLocked(kind, id); i >= 0 {
		m.lines = append(m.lines[:i], m.lines[i+1:]...)
	}
}

// Lines returns a copy of the draft lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]Line, len(m.lines))
	copy(lines, m.lines)
	return lines
}

// Total sums all line subtotals.
func (m *Manager) Total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, line := range m.lines {
		total += line.Subtotal
	}
	return total
}

// Clear empties the cart.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
}

// resolve looks up the name and current price of the referenced item.
func (m *Manager) resolve(kind catalog.Kind, id uuid.UUID) (string, int64, error) {
	switch kind {
	case catalog.KindProduct:
		product, err := m.catalog.Product(id)
		if err != nil {
			return "", 0, err
		}
		return product.Name, product.Price, nil
	case catalog.KindKit:
		kit, err := m.catalog.Kit(id)
		if err != nil {
			return "", 0, err
		}
		return kit.Name, kit.Price, nil
	default:
		return "", 0, fmt.Errorf("unknown item kind %q: %w", kind, carterrors.ErrInvalidInput)
	}
}

// findLocked returns the index of the line for (id, kind), or -1.
// Callers must hold the lock.
func (m *Manager) findLocked(kind catalog.Kind, id uuid.UUID) int {
	for i, line := range m.lines {
		if line.RefID == id && line.Kind == kind {
			return i
		}
	}
	return -1
}
