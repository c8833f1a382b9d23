package sales

import (
	"testing"
	"time"

	"github.com/abgdnv/salesdesk/internal/cart"
	"github.com/abgdnv/salesdesk/internal/catalog"
	saleserrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *catalog.Store
	cart      *cart.Manager
	history   *History
	committer *Committer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := catalog.NewStore()
	manager := cart.NewManager(store)
	history := NewHistory()
	return &fixture{
		store:     store,
		cart:      manager,
		history:   history,
		committer: NewCommitter(store, manager, history),
	}
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int32 {
	t.Helper()
	product, err := f.store.Product(id)
	require.NoError(t, err)
	return product.Stock
}

func Test_Committer_Checkout_EmptyCart(t *testing.T) {
	// given
	f := newFixture(t)
	// when
	sale, err := f.committer.Checkout()
	// then
	assert.ErrorIs(t, err, saleserrors.ErrEmptyCart)
	assert.Nil(t, sale)
	assert.Equal(t, 0, f.history.Len())
}

func Test_Committer_Checkout_ProductSale(t *testing.T) {
	// given: P1 price=45.00, stock=50; 2 units in the cart
	f := newFixture(t)
	product, err := f.store.AddProduct("P1", 4500, 50)
	require.NoError(t, err)
	_, err = f.cart.Add(catalog.KindProduct, product.ID, 2)
	require.NoError(t, err)

	// when
	sale, err := f.committer.Checkout()

	// then: total 90.00, stock 48, one sale in the ledger, cart cleared
	require.NoError(t, err)
	assert.Equal(t, int64(9000), sale.Total)
	require.Len(t, sale.Lines, 1)
	assert.Equal(t, int64(9000), sale.Lines[0].Subtotal)
	assert.Equal(t, int32(48), f.stock(t, product.ID))
	assert.Equal(t, 1, f.history.Len())
	assert.Empty(t, f.cart.Lines())
	assert.Equal(t, sale.Total, f.history.TotalRevenue())
}

func Test_Committer_Checkout_KitDrainsComponents(t *testing.T) {
	// given: K1 = {P1 x1, P2 x1}, P1 stock=50, P2 stock=30
	f := newFixture(t)
	p1, err := f.store.AddProduct("P1", 4500, 50)
	require.NoError(t, err)
	p2, err := f.store.AddProduct("P2", 2500, 30)
	require.NoError(t, err)
	kit, err := f.store.AddKit("K1", 6000, []catalog.Component{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: p2.ID, Quantity: 1},
	})
	require.NoError(t, err)

	available, err := f.store.AvailableUnits(catalog.KindKit, kit.ID)
	require.NoError(t, err)
	require.Equal(t, int32(30), available)

	// when: all 30 kits are sold
	_, err = f.cart.Add(catalog.KindKit, kit.ID, 30)
	require.NoError(t, err)
	sale, err := f.committer.Checkout()

	// then: components drained, kit availability now 0
	require.NoError(t, err)
	assert.Equal(t, int64(30*6000), sale.Total)
	assert.Equal(t, int32(20), f.stock(t, p1.ID))
	assert.Equal(t, int32(0), f.stock(t, p2.ID))

	// one more kit cannot even be added to the cart
	_, err = f.cart.Add(catalog.KindKit, kit.ID, 1)
	assert.ErrorIs(t, err, saleserrors.ErrInsufficientStock)
}

func Test_Committer_Checkout_RevalidatesAgainstLiveStock(t *testing.T) {
	// given: the line was valid when added, then stock moved underneath it
	f := newFixture(t)
	product, err := f.store.AddProduct("P1", 4500, 5)
	require.NoError(t, err)
	_, err = f.cart.Add(catalog.KindProduct, product.ID, 5)
	require.NoError(t, err)
	require.NoError(t, f.store.DecrementStock(product.ID, 3))

	// when
	sale, err := f.committer.Checkout()

	// then: whole checkout aborts, nothing deducted, cart kept for correction
	assert.ErrorIs(t, err, saleserrors.ErrInsufficientStock)
	assert.Nil(t, sale)
	assert.Equal(t, int32(2), f.stock(t, product.ID))
	assert.Equal(t, 0, f.history.Len())
	assert.Len(t, f.cart.Lines(), 1)
}

func Test_Committer_Checkout_SharedComponentAggregation(t *testing.T) {
	// given: the mug is consumed directly and through the kit in the same cart
	f := newFixture(t)
	mug, err := f.store.AddProduct("Mug", 2500, 10)
	require.NoError(t, err)
	tshirt, err := f.store.AddProduct("T-Shirt", 4500, 50)
	require.NoError(t, err)
	kit, err := f.store.AddKit("Welcome Kit", 9500, []catalog.Component{
		{ProductID: tshirt.ID, Quantity: 1},
		{ProductID: mug.ID, Quantity: 2},
	})
	require.NoError(t, err)

	_, err = f.cart.Add(catalog.KindProduct, mug.ID, 4)
	require.NoError(t, err)
	_, err = f.cart.Add(catalog.KindKit, kit.ID, 3)
	require.NoError(t, err)

	// when
	_, err = f.committer.Checkout()

	// then: mug deducted once for the combined amount 4 + 3*2 = 10
	require.NoError(t, err)
	assert.Equal(t, int32(0), f.stock(t, mug.ID))
	assert.Equal(t, int32(47), f.stock(t, tshirt.ID))
}

func Test_Committer_Checkout_SharedScarceComponentAborts(t *testing.T) {
	// given: two kit lines compete for one scarce component; each line alone
	// passes per-line validation, the combined deduction cannot
	f := newFixture(t)
	scarce, err := f.store.AddProduct("Scarce", 1000, 3)
	require.NoError(t, err)
	filler, err := f.store.AddProduct("Filler", 1000, 100)
	require.NoError(t, err)
	kitA, err := f.store.AddKit("Kit A", 3000, []catalog.Component{
		{ProductID: scarce.ID, Quantity: 1},
		{ProductID: filler.ID, Quantity: 1},
	})
	require.NoError(t, err)
	kitB, err := f.store.AddKit("Kit B", 3000, []catalog.Component{
		{ProductID: scarce.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = f.cart.Add(catalog.KindKit, kitA.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.Add(catalog.KindKit, kitB.ID, 2)
	require.NoError(t, err)

	// when: combined demand for the scarce product is 4 > 3
	sale, err := f.committer.Checkout()

	// then: total failure with zero net stock change on either product
	assert.ErrorIs(t, err, saleserrors.ErrInsufficientStock)
	assert.Nil(t, sale)
	assert.Equal(t, int32(3), f.stock(t, scarce.ID))
	assert.Equal(t, int32(100), f.stock(t, filler.ID))
	assert.Equal(t, 0, f.history.Len())
}

func Test_Committer_Checkout_RemovedKitAborts(t *testing.T) {
	// given: the kit is removed from the catalog after it entered the cart
	f := newFixture(t)
	mug, err := f.store.AddProduct("Mug", 2500, 10)
	require.NoError(t, err)
	kit, err := f.store.AddKit("Welcome Kit", 9500, []catalog.Component{
		{ProductID: mug.ID, Quantity: 1},
	})
	require.NoError(t, err)
	_, err = f.cart.Add(catalog.KindKit, kit.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.store.RemoveKit(kit.ID))

	// when
	sale, err := f.committer.Checkout()

	// then
	assert.ErrorIs(t, err, saleserrors.ErrKitNotFound)
	assert.Nil(t, sale)
	assert.Equal(t, int32(10), f.stock(t, mug.ID))
}

func Test_Committer_Checkout_SaleSnapshotIsImmutable(t *testing.T) {
	// given
	f := newFixture(t)
	fixedTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedID := uuid.New()
	f.committer.now = func() time.Time { return fixedTime }
	f.committer.newID = func() uuid.UUID { return fixedID }

	product, err := f.store.AddProduct("P1", 4500, 50)
	require.NoError(t, err)
	_, err = f.cart.Add(catalog.KindProduct, product.ID, 2)
	require.NoError(t, err)

	// when
	sale, err := f.committer.Checkout()

	// then
	require.NoError(t, err)
	assert.Equal(t, fixedID, sale.ID)
	assert.Equal(t, fixedTime, sale.Timestamp)

	// the ledger copy is detached from later cart activity
	_, err = f.cart.Add(catalog.KindProduct, product.ID, 1)
	require.NoError(t, err)
	listed := f.history.List()
	require.Len(t, listed, 1)
	assert.Equal(t, int32(2), listed[0].Lines[0].Quantity)
}
