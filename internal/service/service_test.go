package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/abgdnv/salesdesk/internal/catalog"
	deskerrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/abgdnv/salesdesk/internal/store"
	"github.com/abgdnv/salesdesk/pkg/messaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSnapshotStore is a mock implementation of the SnapshotStore interface
type mockSnapshotStore struct {
	snapshot  *store.Snapshot
	loadError error
	saveError error
	saved     []*store.Snapshot
}

func (m *mockSnapshotStore) Load(_ context.Context) (*store.Snapshot, error) {
	return m.snapshot, m.loadError
}

func (m *mockSnapshotStore) Save(_ context.Context, snapshot *store.Snapshot) error {
	if m.saveError != nil {
		return m.saveError
	}
	m.saved = append(m.saved, snapshot)
	return nil
}

// mockPublisher is a mock implementation of the messaging.Publisher interface
type mockPublisher struct {
	events []messaging.Event
	error  error
}

func (m *mockPublisher) Publish(_ context.Context, event messaging.Event) error {
	if m.error != nil {
		return m.error
	}
	m.events = append(m.events, event)
	return nil
}

func newTestService(t *testing.T, snapshots *mockSnapshotStore, publisher messaging.Publisher) *Service {
	t.Helper()
	svc := NewService(snapshots, publisher, slog.Default())
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func Test_Service_Load(t *testing.T) {
	t.Run("Success - seeds default catalog when nothing saved", func(t *testing.T) {
		// given
		snapshots := &mockSnapshotStore{}
		// when
		svc := newTestService(t, snapshots, nil)
		// then
		assert.Len(t, svc.Products(), 3)
		assert.Len(t, svc.Kits(), 1)
		assert.Empty(t, svc.Sales())
	})

	t.Run("Success - restores saved snapshot", func(t *testing.T) {
		// given
		productID := uuid.New()
		snapshots := &mockSnapshotStore{
			snapshot: &store.Snapshot{
				Products: []catalog.Product{{ID: productID, Name: "Sticker", Price: 500, Stock: 7}},
			},
		}
		// when
		svc := newTestService(t, snapshots, nil)
		// then
		products := svc.Products()
		require.Len(t, products, 1)
		assert.Equal(t, productID.String(), products[0].ID)
		assert.Equal(t, int32(7), products[0].Stock)
	})

	t.Run("Error - load failure is surfaced", func(t *testing.T) {
		// given
		loadError := errors.New("disk gone")
		svc := NewService(&mockSnapshotStore{loadError: loadError}, nil, slog.Default())
		// when
		err := svc.Load(context.Background())
		// then
		assert.ErrorIs(t, err, loadError)
	})
}

func Test_Service_CreateProduct(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	svc := newTestService(t, snapshots, nil)

	// when
	created, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "Cap", Price: 3500, Stock: 12})

	// then: product exists and a snapshot was written
	require.NoError(t, err)
	assert.Equal(t, "Cap", created.Name)
	require.Len(t, snapshots.saved, 1)
	require.Len(t, snapshots.saved[0].Products, 1)
	assert.Equal(t, "Cap", snapshots.saved[0].Products[0].Name)

	// invalid input does not touch the snapshot store
	_, err = svc.CreateProduct(context.Background(), ProductCreateDto{Name: "", Price: 3500, Stock: 12})
	assert.ErrorIs(t, err, deskerrors.ErrInvalidInput)
	assert.Len(t, snapshots.saved, 1)
}

func Test_Service_CreateProduct_SaveFailureSurfaced(t *testing.T) {
	// given
	saveError := errors.New("disk full")
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}, saveError: saveError}
	svc := newTestService(t, snapshots, nil)

	// when
	_, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "Cap", Price: 3500, Stock: 12})

	// then: the error is surfaced and in-memory state is kept for a retry
	assert.ErrorIs(t, err, saveError)
	assert.Len(t, svc.Products(), 1)
}

func Test_Service_DeleteProduct(t *testing.T) {
	// given: the default seed, where the t-shirt is referenced by the kit
	snapshots := &mockSnapshotStore{}
	svc := newTestService(t, snapshots, nil)
	products := svc.Products()
	referenced := products[0] // T-Shirt, part of Welcome Kit
	free := products[1]       // Hoodie

	// when / then
	referencedID := uuid.MustParse(referenced.ID)
	err := svc.DeleteProduct(context.Background(), referencedID)
	assert.ErrorIs(t, err, deskerrors.ErrProductInUse)
	assert.Len(t, svc.Products(), 3)

	require.NoError(t, svc.DeleteProduct(context.Background(), uuid.MustParse(free.ID)))
	assert.Len(t, svc.Products(), 2)
}

func Test_Service_CreateKit(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	svc := newTestService(t, snapshots, nil)
	product, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "Mug", Price: 2500, Stock: 10})
	require.NoError(t, err)

	// when
	kit, err := svc.CreateKit(context.Background(), KitCreateDto{
		Name:       "Mug Duo",
		Price:      4500,
		Components: []ComponentDto{{ProductID: product.ID, Quantity: 2}},
	})

	// then: derived availability is part of the DTO
	require.NoError(t, err)
	assert.Equal(t, int32(5), kit.Available)

	// a malformed component ID is rejected before touching the catalog
	_, err = svc.CreateKit(context.Background(), KitCreateDto{
		Name:       "Broken",
		Price:      100,
		Components: []ComponentDto{{ProductID: "not-a-uuid", Quantity: 1}},
	})
	assert.ErrorIs(t, err, deskerrors.ErrInvalidInput)
}

func Test_Service_Cart(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	svc := newTestService(t, snapshots, nil)
	product, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "Cap", Price: 3500, Stock: 12})
	require.NoError(t, err)
	savedBefore := len(snapshots.saved)

	// when: quantity zero defaults to one unit
	updated, err := svc.AddToCart(CartAddDto{RefID: product.ID, Kind: "product"})

	// then
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, int32(1), updated.Lines[0].Quantity)
	assert.Equal(t, int64(3500), updated.Total)

	// cart activity does not persist snapshots
	assert.Len(t, snapshots.saved, savedBefore)

	// remove and clear
	cleared := svc.RemoveFromCart(catalog.KindProduct, uuid.MustParse(product.ID))
	assert.Empty(t, cleared.Lines)
	_, err = svc.AddToCart(CartAddDto{RefID: product.ID, Kind: "product", Quantity: 2})
	require.NoError(t, err)
	svc.ClearCart()
	assert.Empty(t, svc.Cart().Lines)
}

func Test_Service_Checkout(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	publisher := &mockPublisher{}
	svc := newTestService(t, snapshots, publisher)
	product, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "P1", Price: 4500, Stock: 50})
	require.NoError(t, err)
	_, err = svc.AddToCart(CartAddDto{RefID: product.ID, Kind: "product", Quantity: 2})
	require.NoError(t, err)

	// when
	sale, err := svc.Checkout(context.Background())

	// then: sale recorded, stock persisted, event published, cart empty
	require.NoError(t, err)
	assert.Equal(t, int64(9000), sale.Total)

	require.NotEmpty(t, snapshots.saved)
	last := snapshots.saved[len(snapshots.saved)-1]
	require.Len(t, last.Sales, 1)
	assert.Equal(t, int32(48), last.Products[0].Stock)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "sales.completed", publisher.events[0].Subject())

	assert.Empty(t, svc.Cart().Lines)

	// empty cart cannot be checked out again
	_, err = svc.Checkout(context.Background())
	assert.ErrorIs(t, err, deskerrors.ErrEmptyCart)
}

func Test_Service_Checkout_PublishFailureDoesNotUndoSale(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	publisher := &mockPublisher{error: errors.New("broker down")}
	svc := newTestService(t, snapshots, publisher)
	product, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "P1", Price: 4500, Stock: 50})
	require.NoError(t, err)
	_, err = svc.AddToCart(CartAddDto{RefID: product.ID, Kind: "product", Quantity: 1})
	require.NoError(t, err)

	// when
	sale, err := svc.Checkout(context.Background())

	// then
	require.NoError(t, err)
	assert.NotNil(t, sale)
	assert.Len(t, svc.Sales(), 1)
}

func Test_Service_Sales_MostRecentFirst(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	svc := newTestService(t, snapshots, nil)
	p1, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "First", Price: 1000, Stock: 10})
	require.NoError(t, err)
	p2, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "Second", Price: 2000, Stock: 10})
	require.NoError(t, err)

	_, err = svc.AddToCart(CartAddDto{RefID: p1.ID, Kind: "product", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background())
	require.NoError(t, err)
	_, err = svc.AddToCart(CartAddDto{RefID: p2.ID, Kind: "product", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background())
	require.NoError(t, err)

	// when
	list := svc.Sales()

	// then: newest sale first for display
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Lines[0].Name)
	assert.Equal(t, "First", list[1].Lines[0].Name)
}

func Test_Service_Summary(t *testing.T) {
	// given
	snapshots := &mockSnapshotStore{snapshot: &store.Snapshot{}}
	svc := newTestService(t, snapshots, nil)
	product, err := svc.CreateProduct(context.Background(), ProductCreateDto{Name: "P1", Price: 4500, Stock: 50})
	require.NoError(t, err)
	_, err = svc.AddToCart(CartAddDto{RefID: product.ID, Kind: "product", Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background())
	require.NoError(t, err)

	// when
	summary := svc.Summary()

	// then
	assert.Equal(t, int64(9000), summary.TotalRevenue)
	assert.Equal(t, 1, summary.Products)
	assert.Equal(t, 0, summary.Kits)
	assert.Equal(t, 1, summary.Sales)
}
