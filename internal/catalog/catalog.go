// Package catalog owns the product and kit catalog and derives availability from it.
package catalog

import (
	"fmt"
	"sync"

	catalogerrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/google/uuid"
)

// Kind discriminates between the two sellable item types.
type Kind string

const (
	KindProduct Kind = "product"
	KindKit     Kind = "kit"
)

// Product represents an individually stocked, sellable item.
type Product struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price int64     `json:"price"` // Price in cents
	Stock int32     `json:"stock"`
}

// Component is a reference to a product consumed by a kit,
// with the number of units consumed per kit sold.
type Component struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
}

// Kit is a composite sellable bundle defined by fixed quantities of underlying products.
type Kit struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Price      int64       `json:"price"` // Price in cents
	Components []Component `json:"components"`
}

// Store is the in-memory owner of all products and kits.
// All mutation goes through its methods; insertion order is preserved
// so that a persisted snapshot round-trips observably identical.
type Store struct {
	mu           sync.RWMutex
	products     map[uuid.UUID]Product
	kits         map[uuid.UUID]Kit
	productOrder []uuid.UUID
	kitOrder     []uuid.UUID
}

// NewStore creates an empty catalog store.
func NewStore() *Store {
	return &Store{
		products: make(map[uuid.UUID]Product),
		kits:     make(map[uuid.UUID]Kit),
	}
}

// AddProduct creates a new product with a freshly generated ID.
// Returns ErrInvalidInput if the name is empty or price/stock is negative.
func (s *Store) AddProduct(name string, price int64, stock int32) (*Product, error) {
	if err := validateProduct(name, price, stock); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product := Product{
		ID:    uuid.New(),
		Name:  name,
		Price: price,
		Stock: stock,
	}
	s.products[product.ID] = product
	s.productOrder = append(s.productOrder, product.ID)
	return &product, nil
}

// UpdateProduct replaces the mutable fields of an existing product.
// Returns ErrProductNotFound if the ID is unknown and ErrInvalidInput on bad values.
func (s *Store) UpdateProduct(id uuid.UUID, name string, price int64, stock int32) (*Product, error) {
	if err := validateProduct(name, price, stock); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, catalogerrors.ErrProductNotFound)
	}
	product.Name = name
	product.Price = price
	product.Stock = stock
	s.products[id] = product
	return &product, nil
}

// RemoveProduct deletes a product. A product still referenced by a kit
// cannot be removed; the kit must be removed first. This keeps every kit
// component resolvable at all times.
func (s *Store) RemoveProduct(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, catalogerrors.ErrProductNotFound)
	}
	for _, kitID := range s.kitOrder {
		kit := s.kits[kitID]
		for _, c := range kit.Components {
			if c.ProductID == id {
				return fmt.Errorf("product %s is used by kit %q: %w", id, kit.Name, catalogerrors.ErrProductInUse)
			}
		}
	}
	delete(s.products, id)
	s.productOrder = removeID(s.productOrder, id)
	return nil
}

// AddKit creates a new kit. Repeated references to the same product are
// merged into a single component by summing their quantities.
// Returns ErrInvalidInput on an empty name, negative price, empty component
// list or non-positive component quantity, and ErrProductNotFound if any
// referenced product does not exist.
func (s *Store) AddKit(name string, price int64, components []Component) (*Kit, error) {
	if name == "" {
		return nil, fmt.Errorf("kit name must not be empty: %w", catalogerrors.ErrInvalidInput)
	}
	if price < 0 {
		return nil, fmt.Errorf("kit price must not be negative: %w", catalogerrors.ErrInvalidInput)
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("kit must have at least one component: %w", catalogerrors.ErrInvalidInput)
	}
	for _, c := range components {
		if c.Quantity <= 0 {
			return nil, fmt.Errorf("component quantity must be positive: %w", catalogerrors.ErrInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := mergeComponents(components)
	for _, c := range merged {
		if _, ok := s.products[c.ProductID]; !ok {
			return nil, fmt.Errorf("component product %s: %w", c.ProductID, catalogerrors.ErrProductNotFound)
		}
	}

	kit := Kit{
		ID:         uuid.New(),
		Name:       name,
		Price:      price,
		Components: merged,
	}
	s.kits[kit.ID] = kit
	s.kitOrder = append(s.kitOrder, kit.ID)
	result := copyKit(kit)
	return &result, nil
}

// RemoveKit deletes a kit. Returns ErrKitNotFound if the ID is unknown.
func (s *Store) RemoveKit(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kits[id]; !ok {
		return fmt.Errorf("kit %s: %w", id, catalogerrors.ErrKitNotFound)
	}
	delete(s.kits, id)
	s.kitOrder = removeID(s.kitOrder, id)
	return nil
}

// Product retrieves a product by ID.
func (s *Store) Product(id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, catalogerrors.ErrProductNotFound)
	}
	return &product, nil
}

// Kit retrieves a kit by ID.
func (s *Store) Kit(id uuid.UUID) (*Kit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kit, ok := s.kits[id]
	if !ok {
		return nil, fmt.Errorf("kit %s: %w", id, catalogerrors.ErrKitNotFound)
	}
	result := copyKit(kit)
	return &result, nil
}

// Products returns all products in insertion order.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		list = append(list, s.products[id])
	}
	return list
}

// Kits returns all kits in insertion order.
func (s *Store) Kits() []Kit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Kit, 0, len(s.kitOrder))
	for _, id := range s.kitOrder {
		list = append(list, copyKit(s.kits[id]))
	}
	return list
}

// DecrementStock reduces a product's stock by amount. This is the only
// stock-mutating primitive used by checkout. Returns ErrInsufficientStock
// if the resulting stock would go negative.
func (s *Store) DecrementStock(id uuid.UUID, amount int32) error {
	if amount <= 0 {
		return fmt.Errorf("deduction amount must be positive: %w", catalogerrors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deductLocked(map[uuid.UUID]int32{id: amount})
}

// ApplyDeductions applies a set of per-product stock deductions as a single
// transaction: every deduction is checked against current stock before any
// is applied, and a failed check leaves every product untouched.
func (s *Store) ApplyDeductions(deductions map[uuid.UUID]int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deductLocked(deductions)
}

// deductLocked validates all deductions and then applies them. Callers must
// hold the write lock.
func (s *Store) deductLocked(deductions map[uuid.UUID]int32) error {
	for id, amount := range deductions {
		product, ok := s.products[id]
		if !ok {
			return fmt.Errorf("product %s: %w", id, catalogerrors.ErrProductNotFound)
		}
		if product.Stock < amount {
			return fmt.Errorf("product %q has %d in stock, %d requested: %w",
				product.Name, product.Stock, amount, catalogerrors.ErrInsufficientStock)
		}
	}
	for id, amount := range deductions {
		product := s.products[id]
		product.Stock -= amount
		s.products[id] = product
	}
	return nil
}

// Load replaces the store's contents with the given snapshot data.
// Duplicate component references inside a kit are merged by summing their
// quantities, so older persisted data is normalized on the way in.
func (s *Store) Load(products []Product, kits []Kit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[uuid.UUID]Product, len(products))
	s.productOrder = make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		if _, ok := s.products[p.ID]; ok {
			continue
		}
		s.products[p.ID] = p
		s.productOrder = append(s.productOrder, p.ID)
	}

	s.kits = make(map[uuid.UUID]Kit, len(kits))
	s.kitOrder = make([]uuid.UUID, 0, len(kits))
	for _, k := range kits {
		if _, ok := s.kits[k.ID]; ok {
			continue
		}
		k.Components = mergeComponents(k.Components)
		s.kits[k.ID] = k
		s.kitOrder = append(s.kitOrder, k.ID)
	}
}

// validateProduct checks the product fields shared by add and update.
func validateProduct(name string, price int64, stock int32) error {
	if name == "" {
		return fmt.Errorf("product name must not be empty: %w", catalogerrors.ErrInvalidInput)
	}
	if price < 0 {
		return fmt.Errorf("product price must not be negative: %w", catalogerrors.ErrInvalidInput)
	}
	if stock < 0 {
		return fmt.Errorf("product stock must not be negative: %w", catalogerrors.ErrInvalidInput)
	}
	return nil
}

// mergeComponents collapses repeated references to the same product into one
// component, preserving the order of first appearance.
func mergeComponents(components []Component) []Component {
	merged := make([]Component, 0, len(components))
	index := make(map[uuid.UUID]int, len(components))
	for _, c := range components {
		if i, ok := index[c.ProductID]; ok {
			merged[i].Quantity += c.Quantity
			continue
		}
		index[c.ProductID] = len(merged)
		merged = append(merged, c)
	}
	return merged
}

func copyKit(kit Kit) Kit {
	components := make([]Component, len(kit.Components))
	copy(components, kit.Components)
	kit.Components = components
	return kit
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
