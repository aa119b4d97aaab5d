package ingest

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"shipload/internal/store"
)

// The line-item spreadsheet carries no quantity column; every row loads with
// this quantity. TODO: confirm with the feed owners whether a real quantity
// source exists.
const defaultQuantity = 1

// Stats summarizes a completed load.
type Stats struct {
	Products  int
	Locations int
	Drivers   int
	Shipments int
	LineItems int
	RowErrors int
}

type Loader struct {
	st *store.Store
}

func NewLoader(st *store.Store) *Loader {
	return &Loader{st: st}
}

// Load runs the full population pass: entity tables first (batch-committed
// per entity kind, failures fatal), then shipments and line items row by row
// (each in its own transaction, failures logged and skipped).
func (l *Loader) Load(ctx context.Context, in *Inputs) (*Stats, error) {
	stats := &Stats{}

	color.Cyan("Populating Products, Locations and Drivers...")

	products := distinctNames(func(yield func(string)) {
		for _, r := range in.Dispatch {
			yield(r.Product)
		}
		for _, r := range in.LineItems {
			yield(r.Product)
		}
	})
	if err := l.populateEntities(ctx, productEntity, products); err != nil {
		return nil, err
	}
	stats.Products = len(products)

	locations := distinctNames(func(yield func(string)) {
		for _, r := range in.Dispatch {
			yield(r.OriginWarehouse)
			yield(r.DestinationStore)
		}
		for _, r := range in.Manifest {
			yield(r.OriginWarehouse)
			yield(r.DestinationStore)
		}
	})
	if err := l.populateEntities(ctx, locationEntity, locations); err != nil {
		return nil, err
	}
	stats.Locations = len(locations)

	drivers := distinctNames(func(yield func(string)) {
		for _, r := range in.Dispatch {
			yield(r.DriverIdentifier)
		}
		for _, r := range in.Manifest {
			yield(r.DriverIdentifier)
		}
	})
	if err := l.populateEntities(ctx, driverEntity, drivers); err != nil {
		return nil, err
	}
	stats.Drivers = len(drivers)

	color.Cyan("Populating Shipments and ShipmentLineItems...")

	l.loadShipments(ctx, in, stats)
	l.loadLineItems(ctx, in, stats)

	return stats, nil
}

// distinctNames collects unique names in first-appearance order.
func distinctNames(walk func(yield func(string))) []string {
	seen := make(map[string]bool)
	var names []string
	walk(func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

// populateEntities resolves every name inside one transaction and commits the
// batch. Any failure here is fatal for the run.
func (l *Loader) populateEntities(ctx context.Context, kind entityKind, names []string) error {
	tx, err := l.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin %s transaction: %w", kind.table, err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := resolveEntity(ctx, l.st, tx, kind, name); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s batch: %w", kind.table, err)
	}
	return nil
}

// loadShipments inserts one shipment per distinct identifier, first manifest
// row wins. Each row commits on its own; a failed row is logged and skipped.
func (l *Loader) loadShipments(ctx context.Context, in *Inputs, stats *Stats) {
	seen := make(map[int64]bool, len(in.Manifest))
	for _, rec := range in.Manifest {
		if seen[rec.ShipmentID] {
			continue
		}
		seen[rec.ShipmentID] = true

		if err := l.insertShipment(ctx, rec); err != nil {
			stats.RowErrors++
			color.Red("error inserting shipment %d from %s: %v", rec.ShipmentID, in.ManifestSource, err)
			continue
		}
		stats.Shipments++
	}
}

func (l *Loader) insertShipment(ctx context.Context, rec ManifestRecord) error {
	tx, err := l.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Steps 2-4 should already have created these; resolving again keeps a
	// manifest-only name from failing the row.
	originID, err := resolveEntity(ctx, l.st, tx, locationEntity, rec.OriginWarehouse)
	if err != nil {
		return err
	}
	destID, err := resolveEntity(ctx, l.st, tx, locationEntity, rec.DestinationStore)
	if err != nil {
		return err
	}
	driverID, err := resolveEntity(ctx, l.st, tx, driverEntity, rec.DriverIdentifier)
	if err != nil {
		return err
	}

	insert := l.st.Builder().Insert("Shipments").
		Columns("ShipmentID", "OriginLocationID", "DestinationLocationID", "DriverID").
		Values(rec.ShipmentID, originID, destID, driverID)
	query, args, err := l.st.InsertIgnore(insert, "ShipmentID").ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}

// loadLineItems inserts every line-item row, no deduplication. Each row
// commits on its own; a failed row is logged and skipped.
func (l *Loader) loadLineItems(ctx context.Context, in *Inputs, stats *Stats) {
	for _, rec := range in.LineItems {
		if err := l.insertLineItem(ctx, rec); err != nil {
			stats.RowErrors++
			color.Red("error inserting line item for shipment %d from %s: %v", rec.ShipmentID, in.LineItemSource, err)
			continue
		}
		stats.LineItems++
	}
}

func (l *Loader) insertLineItem(ctx context.Context, rec LineItemRecord) error {
	tx, err := l.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	productID, err := resolveEntity(ctx, l.st, tx, productEntity, rec.Product)
	if err != nil {
		return err
	}

	query, args, err := l.st.Builder().Insert("ShipmentLineItems").
		Columns("ShipmentID", "ProductID", "Quantity", "OnTimeStatus").
		Values(rec.ShipmentID, productID, defaultQuantity, rec.OnTime).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}
