package catalog

import (
	"fmt"

	catalogerrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/google/uuid"
)

// AvailableUnits derives the sellable quantity of an item from current stock.
// For a product this is its stock. For a kit it is the minimum over its
// components of floor(stock / quantity): the scarcest component limits the
// whole kit. A kit with no components, or with a component whose product no
// longer resolves, has availability 0. The result is a read of live store
// state; it is never cached.
func (s *Store) AvailableUnits(kind Kind, id uuid.UUID) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case KindProduct:
		product, ok := s.products[id]
		if !ok {
			return 0, fmt.Errorf("product %s: %w", id, catalogerrors.ErrProductNotFound)
		}
		return product.Stock, nil
	case KindKit:
		kit, ok := s.kits[id]
		if !ok {
			return 0, fmt.Errorf("kit %s: %w", id, catalogerrors.ErrKitNotFound)
		}
		return s.kitAvailabilityLocked(kit), nil
	default:
		return 0, fmt.Errorf("unknown item kind %q: %w", kind, catalogerrors.ErrInvalidInput)
	}
}

// kitAvailabilityLocked computes a kit's availability. Callers must hold at
// least the read lock.
func (s *Store) kitAvailabilityLocked(kit Kit) int32 {
	if len(kit.Components) == 0 {
		return 0
	}
	available := int32(-1)
	for _, c := range kit.Components {
		product, ok := s.products[c.ProductID]
		if !ok {
			return 0
		}
		forComponent := product.Stock / c.Quantity
		if available < 0 || forComponent < available {
			available = forComponent
		}
	}
	return available
}
