package ingest

import (
	"context"
	"testing"

	"shipload/internal/store"
)

// The end-to-end scenario: one dispatch row, one manifest row, one line-item
// row, all referring to the same shipment.
func endToEndInputs() *Inputs {
	return &Inputs{
		Dispatch: []DispatchRecord{
			{OriginWarehouse: "WH1", DestinationStore: "ST1", Product: "Widget",
				OnTime: "Yes", ProductQuantity: 5, DriverIdentifier: "D1"},
		},
		LineItems: []LineItemRecord{
			{ShipmentID: 100, Product: "Widget", OnTime: "Yes"},
		},
		Manifest: []ManifestRecord{
			{ShipmentID: 100, OriginWarehouse: "WH1", DestinationStore: "ST1", DriverIdentifier: "D1"},
		},
		LineItemSource: "shipping_data_1.csv",
		ManifestSource: "shipping_data_2.csv",
	}
}

func countRows(t *testing.T, st *store.Store, table string) int {
	t.Helper()

	var count int
	if err := st.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return count
}

func TestLoadEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	stats, err := NewLoader(st).Load(ctx, endToEndInputs())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stats.RowErrors != 0 {
		t.Errorf("Expected no row errors, got %d", stats.RowErrors)
	}

	if got := countRows(t, st, "Products"); got != 1 {
		t.Errorf("Expected 1 product, got %d", got)
	}
	if got := countRows(t, st, "Locations"); got != 2 {
		t.Errorf("Expected 2 locations, got %d", got)
	}
	if got := countRows(t, st, "Drivers"); got != 1 {
		t.Errorf("Expected 1 driver, got %d", got)
	}

	var originName, destName, driverName string
	err = st.DB().QueryRowContext(ctx, `
		SELECT ol.LocationName, dl.LocationName, d.DriverIdentifier
		FROM Shipments s
		JOIN Locations ol ON s.OriginLocationID = ol.LocationID
		JOIN Locations dl ON s.DestinationLocationID = dl.LocationID
		JOIN Drivers d ON s.DriverID = d.DriverID
		WHERE s.ShipmentID = 100`).Scan(&originName, &destName, &driverName)
	if err != nil {
		t.Fatalf("Failed to read shipment 100: %v", err)
	}
	if originName != "WH1" || destName != "ST1" || driverName != "D1" {
		t.Errorf("Shipment resolved to %q -> %q by %q, want WH1 -> ST1 by D1", originName, destName, driverName)
	}

	var productName, onTime string
	var quantity int
	err = st.DB().QueryRowContext(ctx, `
		SELECT p.ProductName, sli.Quantity, sli.OnTimeStatus
		FROM ShipmentLineItems sli
		JOIN Products p ON sli.ProductID = p.ProductID
		WHERE sli.ShipmentID = 100`).Scan(&productName, &quantity, &onTime)
	if err != nil {
		t.Fatalf("Failed to read line item: %v", err)
	}
	if productName != "Widget" || quantity != 1 || onTime != "Yes" {
		t.Errorf("Line item = (%q, %d, %q), want (Widget, 1, Yes)", productName, quantity, onTime)
	}
}

func TestEntityNamesUnique(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	in := endToEndInputs()
	// Repeat the same names across both sources.
	in.Dispatch = append(in.Dispatch, in.Dispatch[0])
	in.LineItems = append(in.LineItems, in.LineItems[0])

	if _, err := NewLoader(st).Load(ctx, in); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for table, column := range map[string]string{
		"Products":  "ProductName",
		"Locations": "LocationName",
		"Drivers":   "DriverIdentifier",
	} {
		var dupes int
		query := "SELECT COUNT(*) FROM (SELECT " + column + " FROM " + table +
			" GROUP BY " + column + " HAVING COUNT(*) > 1)"
		if err := st.DB().QueryRowContext(ctx, query).Scan(&dupes); err != nil {
			t.Fatalf("Failed to check duplicates in %s: %v", table, err)
		}
		if dupes != 0 {
			t.Errorf("Table %s has %d duplicated names", table, dupes)
		}
	}
}

func TestManifestDuplicateFirstWins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	in := endToEndInputs()
	in.Manifest = append(in.Manifest,
		ManifestRecord{ShipmentID: 100, OriginWarehouse: "WH2", DestinationStore: "ST2", DriverIdentifier: "D2"})

	stats, err := NewLoader(st).Load(ctx, in)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stats.RowErrors != 0 {
		t.Errorf("Duplicate manifest row must not count as an error, got %d", stats.RowErrors)
	}
	if stats.Shipments != 1 {
		t.Errorf("Expected 1 shipment, got %d", stats.Shipments)
	}

	var driverName string
	err = st.DB().QueryRowContext(ctx, `
		SELECT d.DriverIdentifier FROM Shipments s
		JOIN Drivers d ON s.DriverID = d.DriverID
		WHERE s.ShipmentID = 100`).Scan(&driverName)
	if err != nil {
		t.Fatalf("Failed to read shipment: %v", err)
	}
	if driverName != "D1" {
		t.Errorf("Expected first manifest row to win (driver D1), got %q", driverName)
	}
}

func TestLineItemsNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	in := endToEndInputs()
	in.LineItems = append(in.LineItems, in.LineItems[0])

	stats, err := NewLoader(st).Load(ctx, in)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stats.LineItems != 2 {
		t.Errorf("Expected 2 line items, got %d", stats.LineItems)
	}

	var quantities int
	err = st.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ShipmentLineItems WHERE Quantity = 1").Scan(&quantities)
	if err != nil {
		t.Fatalf("Failed to check quantities: %v", err)
	}
	if quantities != 2 {
		t.Errorf("Expected every line item to default to quantity 1, got %d of 2", quantities)
	}
}

func TestLineItemForUnknownShipment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	in := endToEndInputs()
	in.LineItems = append(in.LineItems, LineItemRecord{ShipmentID: 999, Product: "Widget", OnTime: "No"})

	stats, err := NewLoader(st).Load(ctx, in)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// No ordering guarantee between the manifest and line-item feeds, so a
	// line item may reference a shipment the manifest never delivered.
	if stats.LineItems != 2 {
		t.Errorf("Expected 2 line items, got %d (%d row errors)", stats.LineItems, stats.RowErrors)
	}
}

func TestReloadIsDeterministic(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	in := endToEndInputs()
	loader := NewLoader(st)

	if _, err := loader.Load(ctx, in); err != nil {
		t.Fatalf("First load failed: %v", err)
	}
	first := dumpEntities(t, st)

	if err := st.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	if _, err := loader.Load(ctx, in); err != nil {
		t.Fatalf("Second load failed: %v", err)
	}
	second := dumpEntities(t, st)

	if len(first) != len(second) {
		t.Fatalf("Reload changed entity count: %d vs %d", len(first), len(second))
	}
	for name, id := range first {
		if second[name] != id {
			t.Errorf("Entity %q changed id across reloads: %d vs %d", name, id, second[name])
		}
	}
}

func dumpEntities(t *testing.T, st *store.Store) map[string]int64 {
	t.Helper()

	out := make(map[string]int64)
	for table, column := range map[string][2]string{
		"Products":  {"ProductID", "ProductName"},
		"Locations": {"LocationID", "LocationName"},
		"Drivers":   {"DriverID", "DriverIdentifier"},
	} {
		rows, err := st.DB().Query("SELECT " + column[0] + ", " + column[1] + " FROM " + table)
		if err != nil {
			t.Fatalf("Failed to dump %s: %v", table, err)
		}
		for rows.Next() {
			var id int64
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				t.Fatalf("Failed to scan %s row: %v", table, err)
			}
			out[table+"/"+name] = id
		}
		rows.Close()
	}
	return out
}
