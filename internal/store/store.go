// Package store provides the persistence boundary for catalog and sale state.
package store

import (
	"context"

	"github.com/abgdnv/salesdesk/internal/catalog"
	"github.com/abgdnv/salesdesk/internal/sales"
	"github.com/google/uuid"
)

// Snapshot is the full persisted state: the three opaque records the engine
// reads on startup and writes after every mutating operation.
type Snapshot struct {
	Products []catalog.Product `json:"products"`
	Kits     []catalog.Kit     `json:"kits"`
	Sales    []sales.Sale      `json:"sales"`
}

// SnapshotStore is an interface for snapshot persistence.
// It abstracts the underlying blob store, allowing for different implementations
// (e.g., local file, database).
type SnapshotStore interface {
	// Load returns the last saved snapshot, or nil when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save persists the given snapshot, replacing any previous one.
	Save(ctx context.Context, snapshot *Snapshot) error
}

// DefaultSnapshot returns the catalog the engine is seeded with when no
// snapshot exists: three sample products, one sample kit, no sales.
func DefaultSnapshot() *Snapshot {
	tshirt := catalog.Product{ID: uuid.New(), Name: "T-Shirt", Price: 4500, Stock: 50}
	hoodie := catalog.Product{ID: uuid.New(), Name: "Hoodie", Price: 8500, Stock: 30}
	mug := catalog.Product{ID: uuid.New(), Name: "Mug", Price: 2500, Stock: 100}

	welcomeKit := catalog.Kit{
		ID:    uuid.New(),
		Name:  "Welcome Kit",
		Price: 9500,
		Components: []catalog.Component{
			{ProductID: tshirt.ID, Quantity: 1},
			{ProductID: mug.ID, Quantity: 1},
		},
	}

	return &Snapshot{
		Products: []catalog.Product{tshirt, hoodie, mug},
		Kits:     []catalog.Kit{welcomeKit},
		Sales:    []sales.Sale{},
	}
}
