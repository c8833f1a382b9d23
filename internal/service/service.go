// Package service provides the DTO-level operations the transport layer calls,
// orchestrating catalog, cart, checkout, persistence and event publishing.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/salesdesk/internal/cart"
	"github.com/abgdnv/salesdesk/internal/catalog"
	deskerrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/abgdnv/salesdesk/internal/sales"
	"github.com/abgdnv/salesdesk/internal/store"
	"github.com/abgdnv/salesdesk/pkg/messaging"
	"github.com/abgdnv/salesdesk/pkg/messaging/events"
	"github.com/google/uuid"
)

// DeskService defines the operations of the sales desk engine.
// It abstracts the underlying business logic and persistence.
type DeskService interface {
	// Load seeds the engine from the last saved snapshot, or from the
	// default catalog when nothing has been saved yet.
	Load(ctx context.Context) error

	// Products returns all products in catalog order.
	Products() []ProductDto

	// FindProduct retrieves a single product by ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindProduct(id uuid.UUID) (*ProductDto, error)

	// CreateProduct adds a new product to the catalog.
	CreateProduct(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// UpdateProduct replaces the mutable fields of an existing product.
	UpdateProduct(ctx context.Context, id uuid.UUID, product ProductCreateDto) (*ProductDto, error)

	// DeleteProduct removes a product.
	// Returns ErrProductInUse while any kit still references it.
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	// Kits returns all kits in catalog order, with derived availability.
	Kits() []KitDto

	// FindKit retrieves a single kit by ID, with derived availability.
	FindKit(id uuid.UUID) (*KitDto, error)

	// CreateKit adds a new kit to the catalog.
	CreateKit(ctx context.Context, kit KitCreateDto) (*KitDto, error)

	// DeleteKit removes a kit.
	DeleteKit(ctx context.Context, id uuid.UUID) error

	// Cart returns the current draft lines and total.
	Cart() CartDto

	// AddToCart validates and adds an item to the draft.
	AddToCart(item CartAddDto) (*CartDto, error)

	// RemoveFromCart deletes a draft line; absent lines are a no-op.
	RemoveFromCart(kind catalog.Kind, id uuid.UUID) CartDto

	// ClearCart empties the draft.
	ClearCart()

	// Checkout atomically commits the draft as a sale.
	Checkout(ctx context.Context) (*SaleDto, error)

	// Sales returns committed sales, most recent first.
	Sales() []SaleDto

	// Summary returns the dashboard numbers.
	Summary() SummaryDto
}

// Service implements DeskService over the in-memory engine and a snapshot store.
type Service struct {
	catalog   *catalog.Store
	cart      *cart.Manager
	history   *sales.History
	committer *sales.Committer
	snapshots store.SnapshotStore
	publisher messaging.Publisher
	logger    *slog.Logger
}

// NewService wires the engine components over the given snapshot store.
// The publisher may be nil; sale events are then skipped.
func NewService(snapshots store.SnapshotStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	cat := catalog.NewStore()
	crt := cart.NewManager(cat)
	history := sales.NewHistory()
	return &Service{
		catalog:   cat,
		cart:      crt,
		history:   history,
		committer: sales.NewCommitter(cat, crt, history),
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger.With("component", "service"),
	}
}

// ProductCreateDto represents the data transfer object for creating or updating a product.
type ProductCreateDto struct {
	Name  string `json:"name"  validate:"required,max=100"`
	Price int64  `json:"price" validate:"min=0"`
	Stock int32  `json:"stock" validate:"min=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"` // cents
	Stock int32  `json:"stock"`
}

// ComponentDto is one product reference inside a kit.
type ComponentDto struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int32  `json:"quantity"   validate:"required,min=1"`
}

// KitCreateDto represents the data transfer object for creating a kit.
type KitCreateDto struct {
	Name       string         `json:"name"       validate:"required,max=100"`
	Price      int64          `json:"price"      validate:"min=0"`
	Components []ComponentDto `json:"components" validate:"required,min=1,dive"`
}

// KitDto represents the data transfer object for a kit, including the number
// of kits currently sellable given component stock.
type KitDto struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Price      int64          `json:"price"` // cents
	Components []ComponentDto `json:"components"`
	Available  int32          `json:"available"`
}

// CartAddDto represents the data transfer object for adding an item to the cart.
// A zero quantity means one unit.
type CartAddDto struct {
	RefID    string `json:"ref_id"   validate:"required,uuid"`
	Kind     string `json:"kind"     validate:"required,oneof=product kit"`
	Quantity int32  `json:"quantity" validate:"min=0"`
}

// CartLineDto is one line of the draft sale.
type CartLineDto struct {
	RefID     string `json:"ref_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"` // cents
	Quantity  int32  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"` // cents
}

// CartDto is the full draft sale.
type CartDto struct {
	Lines []CartLineDto `json:"lines"`
	Total int64         `json:"total"` // cents
}

// SaleDto represents a committed sale.
type SaleDto struct {
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Lines     []CartLineDto `json:"lines"`
	Total     int64         `json:"total"` // cents
}

// SummaryDto carries the dashboard numbers.
type SummaryDto struct {
	TotalRevenue int64 `json:"total_revenue"` // cents
	Products     int   `json:"products"`
	Kits         int   `json:"kits"`
	Sales        int   `json:"sales"`
}

// Load seeds the engine from the snapshot store, falling back to the default
// catalog when nothing has been saved yet.
func (s *Service) Load(ctx context.Context) error {
	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot == nil {
		s.logger.Info("No saved snapshot found, seeding default catalog")
		snapshot = store.DefaultSnapshot()
	}
	s.catalog.Load(snapshot.Products, snapshot.Kits)
	s.history.Load(snapshot.Sales)
	return nil
}

// Products returns all products in catalog order.
func (s *Service) Products() []ProductDto {
	products := s.catalog.Products()
	dtos := make([]ProductDto, len(products))
	for i, p := range products {
		dtos[i] = *toProductDto(&p)
	}
	return dtos
}

// FindProduct retrieves a product by its ID and returns it as a ProductDto.
func (s *Service) FindProduct(id uuid.UUID) (*ProductDto, error) {
	product, err := s.catalog.Product(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toProductDto(product), nil
}

// CreateProduct adds a new product and persists the catalog.
func (s *Service) CreateProduct(ctx context.Context, dto ProductCreateDto) (*ProductDto, error) {
	product, err := s.catalog.AddProduct(dto.Name, dto.Price, dto.Stock)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return toProductDto(product), nil
}

// UpdateProduct replaces a product's fields and persists the catalog.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, dto ProductCreateDto) (*ProductDto, error) {
	product, err := s.catalog.UpdateProduct(id, dto.Name, dto.Price, dto.Stock)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return toProductDto(product), nil
}

// DeleteProduct removes a product and persists the catalog.
// Returns ErrProductInUse while any kit still references the product.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.catalog.RemoveProduct(id); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Kits returns all kits in catalog order with derived availability.
func (s *Service) Kits() []KitDto {
	kits := s.catalog.Kits()
	dtos := make([]KitDto, len(kits))
	for i, k := range kits {
		dtos[i] = *s.toKitDto(&k)
	}
	return dtos
}

// FindKit retrieves a kit by its ID and returns it as a KitDto.
func (s *Service) FindKit(id uuid.UUID) (*KitDto, error) {
	kit, err := s.catalog.Kit(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kit by ID %s: %w", id, err)
	}
	return s.toKitDto(kit), nil
}

// CreateKit adds a new kit and persists the catalog.
func (s *Service) CreateKit(ctx context.Context, dto KitCreateDto) (*KitDto, error) {
	components := make([]catalog.Component, len(dto.Components))
	for i, c := range dto.Components {
		productID, err := uuid.Parse(c.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid component product ID %q: %w", c.ProductID, deskerrors.ErrInvalidInput)
		}
		components[i] = catalog.Component{ProductID: productID, Quantity: c.Quantity}
	}
	kit, err := s.catalog.AddKit(dto.Name, dto.Price, components)
	if err != nil {
		return nil, fmt.Errorf("failed to create kit: %w", err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.toKitDto(kit), nil
}

// DeleteKit removes a kit and persists the catalog.
func (s *Service) DeleteKit(ctx context.Context, id uuid.UUID) error {
	if err := s.catalog.RemoveKit(id); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Cart returns the current draft.
func (s *Service) Cart() CartDto {
	return toCartDto(s.cart.Lines(), s.cart.Total())
}

// AddToCart validates and adds an item to the draft. The cart itself is not
// persisted; only committed sales touch the snapshot.
func (s *Service) AddToCart(dto CartAddDto) (*CartDto, error) {
	id, err := uuid.Parse(dto.RefID)
	if err != nil {
		return nil, fmt.Errorf("invalid item ID %q: %w", dto.RefID, deskerrors.ErrInvalidInput)
	}
	quantity := dto.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if _, err := s.cart.Add(catalog.Kind(dto.Kind), id, quantity); err != nil {
		return nil, err
	}
	result := s.Cart()
	return &result, nil
}

// RemoveFromCart deletes a draft line and returns the updated draft.
func (s *Service) RemoveFromCart(kind catalog.Kind, id uuid.UUID) CartDto {
	s.cart.Remove(kind, id)
	return s.Cart()
}

// ClearCart empties the draft.
func (s *Service) ClearCart() {
	s.cart.Clear()
}

// Checkout commits the draft as a sale, persists the new state and publishes
// a sale event when a publisher is configured. Publishing is best effort; a
// failed publish is logged and does not undo the sale.
func (s *Service) Checkout(ctx context.Context) (*SaleDto, error) {
	sale, err := s.committer.Checkout()
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, fmt.Errorf("sale %s committed but not persisted: %w", sale.ID, err)
	}

	if s.publisher != nil {
		event := events.SaleCompletedEvent{
			SaleID:      sale.ID,
			Total:       sale.Total,
			LineCount:   len(sale.Lines),
			CompletedAt: sale.Timestamp,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sale event", "sale_id", sale.ID, "error", err)
		}
	}
	return toSaleDto(sale), nil
}

// Sales returns committed sales, most recent first. The history itself keeps
// insertion order; the reversal here is display convention only.
func (s *Service) Sales() []SaleDto {
	list := s.history.List()
	dtos := make([]SaleDto, len(list))
	for i := range list {
		dtos[len(list)-1-i] = *toSaleDto(&list[i])
	}
	return dtos
}

// Summary returns the dashboard numbers.
func (s *Service) Summary() SummaryDto {
	return SummaryDto{
		TotalRevenue: s.history.TotalRevenue(),
		Products:     len(s.catalog.Products()),
		Kits:         len(s.catalog.Kits()),
		Sales:        s.history.Len(),
	}
}

// persist saves the full engine state. In-memory state is already mutated
// when this fails; the caller surfaces the error so the operation can be
// retried against the same state.
func (s *Service) persist(ctx context.Context) error {
	snapshot := &store.Snapshot{
		Products: s.catalog.Products(),
		Kits:     s.catalog.Kits(),
		Sales:    s.history.List(),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// toProductDto converts a catalog.Product to a ProductDto.
func toProductDto(product *catalog.Product) *ProductDto {
	return &ProductDto{
		ID:    product.ID.String(),
		Name:  product.Name,
		Price: product.Price,
		Stock: product.Stock,
	}
}

// toKitDto converts a catalog.Kit to a KitDto with derived availability.
func (s *Service) toKitDto(kit *catalog.Kit) *KitDto {
	components := make([]ComponentDto, len(kit.Components))
	for i, c := range kit.Components {
		components[i] = ComponentDto{ProductID: c.ProductID.String(), Quantity: c.Quantity}
	}
	available, err := s.catalog.AvailableUnits(catalog.KindKit, kit.ID)
	if err != nil {
		available = 0
	}
	return &KitDto{
		ID:         kit.ID.String(),
		Name:       kit.Name,
		Price:      kit.Price,
		Components: components,
		Available:  available,
	}
}

func toCartDto(lines []cart.Line, total int64) CartDto {
	dtos := make([]CartLineDto, len(lines))
	for i, line := range lines {
		dtos[i] = toCartLineDto(line)
	}
	return CartDto{Lines: dtos, Total: total}
}

func toCartLineDto(line cart.Line) CartLineDto {
	return CartLineDto{
		RefID:     line.RefID.String(),
		Kind:      string(line.Kind),
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		Subtotal:  line.Subtotal,
	}
}

// toSaleDto converts a sales.Sale to a SaleDto.
func toSaleDto(sale *sales.Sale) *SaleDto {
	lines := make([]CartLineDto, len(sale.Lines))
	for i, line := range sale.Lines {
		lines[i] = toCartLineDto(line)
	}
	return &SaleDto{
		ID:        sale.ID.String(),
		Timestamp: sale.Timestamp.Format(time.RFC3339),
		Lines:     lines,
		Total:     sale.Total,
	}
}
