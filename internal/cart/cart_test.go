package cart

import (
	"testing"

	"github.com/abgdnv/salesdesk/internal/catalog"
	carterrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*catalog.Store, *catalog.Product, *catalog.Kit) {
	t.Helper()
	store := catalog.NewStore()
	tshirt, err := store.AddProduct("T-Shirt", 4500, 5)
	require.NoError(t, err)
	mug, err := store.AddProduct("Mug", 2500, 10)
	require.NoError(t, err)
	kit, err := store.AddKit("Welcome Kit", 9500, []catalog.Component{
		{ProductID: tshirt.ID, Quantity: 1},
		{ProductID: mug.ID, Quantity: 2},
	})
	require.NoError(t, err)
	return store, tshirt, kit
}

func Test_Manager_Add(t *testing.T) {
	testCases := []struct {
		name         string
		quantity     int32
		expectError  error
		expectedQty  int32
		expectedSub  int64
	}{
		{
			name:        "Success - within stock",
			quantity:    3,
			expectError: nil,
			expectedQty: 3,
			expectedSub: 13500,
		},
		{
			name:        "Error - beyond stock",
			quantity:    6,
			expectError: carterrors.ErrInsufficientStock,
		},
		{
			name:        "Error - non-positive quantity",
			quantity:    0,
			expectError: carterrors.ErrInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			store, tshirt, _ := newCatalog(t)
			manager := NewManager(store)
			// when
			line, err := manager.Add(catalog.KindProduct, tshirt.ID, tc.quantity)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Empty(t, manager.Lines())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedQty, line.Quantity)
			assert.Equal(t, tc.expectedSub, line.Subtotal)
			assert.Len(t, manager.Lines(), 1)
		})
	}
}

func Test_Manager_Add_MergesLines(t *testing.T) {
	// given
	store, tshirt, _ := newCatalog(t)
	manager := NewManager(store)

	// when: the same identity is added twice
	_, err := manager.Add(catalog.KindProduct, tshirt.ID, 2)
	require.NoError(t, err)
	line, err := manager.Add(catalog.KindProduct, tshirt.ID, 3)
	require.NoError(t, err)

	// then: one line with the summed quantity
	assert.Equal(t, int32(5), line.Quantity)
	assert.Equal(t, int64(22500), line.Subtotal)
	assert.Len(t, manager.Lines(), 1)

	// and the merged total is still capped by availability
	_, err = manager.Add(catalog.KindProduct, tshirt.ID, 1)
	assert.ErrorIs(t, err, carterrors.ErrInsufficientStock)
	assert.Equal(t, int32(5), manager.Lines()[0].Quantity)
}

func Test_Manager_Add_KitUsesDerivedAvailability(t *testing.T) {
	// given: kit availability = min(floor(5/1), floor(10/2)) = 5
	store, _, kit := newCatalog(t)
	manager := NewManager(store)

	// when / then
	_, err := manager.Add(catalog.KindKit, kit.ID, 5)
	require.NoError(t, err)
	_, err = manager.Add(catalog.KindKit, kit.ID, 1)
	assert.ErrorIs(t, err, carterrors.ErrInsufficientStock)
}

func Test_Manager_Add_PriceSnapshot(t *testing.T) {
	// given
	store, tshirt, _ := newCatalog(t)
	manager := NewManager(store)
	_, err := manager.Add(catalog.KindProduct, tshirt.ID, 1)
	require.NoError(t, err)

	// when: the catalog price changes after the first add
	_, err = store.UpdateProduct(tshirt.ID, "T-Shirt", 9900, 5)
	require.NoError(t, err)
	line, err := manager.Add(catalog.KindProduct, tshirt.ID, 1)
	require.NoError(t, err)

	// then: the line keeps the price snapshotted at first add
	assert.Equal(t, int64(4500), line.UnitPrice)
	assert.Equal(t, int64(9000), line.Subtotal)
}

func Test_Manager_Add_UnknownItems(t *testing.T) {
	store, _, _ := newCatalog(t)
	manager := NewManager(store)

	_, err := manager.Add(catalog.KindProduct, uuid.New(), 1)
	assert.ErrorIs(t, err, carterrors.ErrProductNotFound)
	_, err = manager.Add(catalog.KindKit, uuid.New(), 1)
	assert.ErrorIs(t, err, carterrors.ErrKitNotFound)
	_, err = manager.Add("bundle", uuid.New(), 1)
	assert.ErrorIs(t, err, carterrors.ErrInvalidInput)
}

func Test_Manager_RemoveAndClear(t *testing.T) {
	// given
	store, tshirt, kit := newCatalog(t)
	manager := NewManager(store)
	_, err := manager.Add(catalog.KindProduct, tshirt.ID, 1)
	require.NoError(t, err)
	_, err = manager.Add(catalog.KindKit, kit.ID, 1)
	require.NoError(t, err)

	// when: removing one identity leaves the other
	manager.Remove(catalog.KindProduct, tshirt.ID)
	require.Len(t, manager.Lines(), 1)
	assert.Equal(t, catalog.KindKit, manager.Lines()[0].Kind)

	// removing an absent line is a no-op
	manager.Remove(catalog.KindProduct, tshirt.ID)
	assert.Len(t, manager.Lines(), 1)

	// clear empties everything
	manager.Clear()
	assert.Empty(t, manager.Lines())
	assert.Equal(t, int64(0), manager.Total())
}

func Test_Manager_Total(t *testing.T) {
	// given
	store, tshirt, kit := newCatalog(t)
	manager := NewManager(store)
	_, err := manager.Add(catalog.KindProduct, tshirt.ID, 2) // 9000
	require.NoError(t, err)
	_, err = manager.Add(catalog.KindKit, kit.ID, 1) // 9500
	require.NoError(t, err)

	// when / then
	assert.Equal(t, int64(18500), manager.Total())
}
