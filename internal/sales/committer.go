package sales

import (
	"fmt"
	"time"

	"github.com/abgdnv/salesdesk/internal/cart"
	"github.com/abgdnv/salesdesk/internal/catalog"
	saleserrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/google/uuid"
)

// Catalog is the slice of the catalog store the committer needs: live
// availability, kit expansion and the atomic stock deduction primitive.
type Catalog interface {
	Kit(id uuid.UUID) (*catalog.Kit, error)
	AvailableUnits(kind catalog.Kind, id uuid.UUID) (int32, error)
	ApplyDeductions(deductions map[uuid.UUID]int32) error
}

// Cart is the slice of the cart manager the committer needs.
type Cart interface {
	Lines() []cart.Line
	Clear()
}

// Committer converts a validated cart into a committed sale. On success the
// underlying product stock is decremented, the sale is appended to the
// history and the cart is cleared. On any failure nothing changes.
type Committer struct {
	catalog Catalog
	cart    Cart
	history *History
	now     func() time.Time
	newID   func() uuid.UUID
}

// NewCommitter creates a committer over the given catalog, cart and history.
func NewCommitter(cat Catalog, crt Cart, history *History) *Committer {
	return &Committer{
		catalog: cat,
		cart:    crt,
		history: history,
		now:     time.Now,
		newID:   uuid.New,
	}
}

// Checkout commits the current cart as one sale.
//
// Every line is re-validated against live availability first: stock may have
// moved since the line was added, and a stale cart must not oversell. Then
// all deductions are flattened per underlying product (a product referenced
// directly and through a kit in the same cart is deducted once, for the
// combined amount) and applied as a single transaction. Returns ErrEmptyCart,
// ErrInsufficientStock naming the offending item, or a not-found error when a
// referenced item was removed after it was added to the cart.
func (c *Committer) Checkout() (*Sale, error) {
	lines := c.cart.Lines()
	if len(lines) == 0 {
		return nil, saleserrors.ErrEmptyCart
	}

	for _, line := range lines {
		available, err := c.catalog.AvailableUnits(line.Kind, line.RefID)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", line.Name, err)
		}
		if line.Quantity > available {
			return nil, fmt.Errorf("%q has %d available, %d in cart: %w",
				line.Name, available, line.Quantity, saleserrors.ErrInsufficientStock)
		}
	}

	deductions, err := c.flatten(lines)
	if err != nil {
		return nil, err
	}
	if err := c.catalog.ApplyDeductions(deductions); err != nil {
		return nil, fmt.Errorf("applying stock deductions: %w", err)
	}

	var total int64
	for _, line := range lines {
		total += line.Subtotal
	}
	sale := Sale{
		ID:        c.newID(),
		Timestamp: c.now(),
		Lines:     lines,
		Total:     total,
	}
	c.history.Append(sale)
	c.cart.Clear()
	return &sale, nil
}

// flatten aggregates the per-product stock deductions of all lines, expanding
// kit lines into their components.
func (c *Committer) flatten(lines []cart.Line) (map[uuid.UUID]int32, error) {
	deductions := make(map[uuid.UUID]int32)
	for _, line := range lines {
		switch line.Kind {
		case catalog.KindProduct:
			deductions[line.RefID] += line.Quantity
		case catalog.KindKit:
			kit, err := c.catalog.Kit(line.RefID)
			if err != nil {
				return nil, fmt.Errorf("line %q: %w", line.Name, err)
			}
			for _, component := range kit.Components {
				deductions[component.ProductID] += component.Quantity * line.Quantity
			}
		default:
			return nil, fmt.Errorf("line %q has unknown kind %q: %w",
				line.Name, line.Kind, saleserrors.ErrInvalidInput)
		}
	}
	return deductions, nil
}
