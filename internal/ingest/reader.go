package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DispatchRecord is one row of the dispatch spreadsheet
// (origin_warehouse, destination_store, product, on_time, product_quantity,
// driver_identifier). Only its entity-bearing columns feed the load; the
// quantity and on_time values have no destination table of their own.
type DispatchRecord struct {
	OriginWarehouse  string
	DestinationStore string
	Product          string
	OnTime           string
	ProductQuantity  int64
	DriverIdentifier string
}

// LineItemRecord is one row of the line-item spreadsheet
// (shipment_identifier, product, on_time).
type LineItemRecord struct {
	ShipmentID int64
	Product    string
	OnTime     string
}

// ManifestRecord is one row of the shipment-manifest spreadsheet
// (shipment_identifier, origin_warehouse, destination_store,
// driver_identifier).
type ManifestRecord struct {
	ShipmentID       int64
	OriginWarehouse  string
	DestinationStore string
	DriverIdentifier string
}

// Inputs holds the three spreadsheets fully read into memory, plus the file
// names used in row-level error messages.
type Inputs struct {
	Dispatch  []DispatchRecord
	LineItems []LineItemRecord
	Manifest  []ManifestRecord

	LineItemSource string
	ManifestSource string
}

type table struct {
	path string
	cols map[string]int
	rows [][]string
}

// readTable loads a whole CSV file and indexes its columns by header name, so
// column order in the file does not matter. A missing required header is
// fatal; extra columns are ignored.
func readTable(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, name)
		}
	}

	return &table{path: path, cols: cols, rows: records[1:]}, nil
}

func (t *table) field(row []string, name string) string {
	return row[t.cols[name]]
}

func (t *table) intField(row []string, name string) (int64, error) {
	raw := strings.TrimSpace(t.field(row, name))
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: column %q: invalid integer %q", t.path, name, raw)
	}
	return v, nil
}

func ReadDispatchFile(path string) ([]DispatchRecord, error) {
	t, err := readTable(path,
		"origin_warehouse", "destination_store", "product", "on_time", "product_quantity", "driver_identifier")
	if err != nil {
		return nil, err
	}

	records := make([]DispatchRecord, 0, len(t.rows))
	for _, row := range t.rows {
		qty, err := t.intField(row, "product_quantity")
		if err != nil {
			return nil, err
		}
		records = append(records, DispatchRecord{
			OriginWarehouse:  t.field(row, "origin_warehouse"),
			DestinationStore: t.field(row, "destination_store"),
			Product:          t.field(row, "product"),
			OnTime:           t.field(row, "on_time"),
			ProductQuantity:  qty,
			DriverIdentifier: t.field(row, "driver_identifier"),
		})
	}
	return records, nil
}

func ReadLineItemFile(path string) ([]LineItemRecord, error) {
	t, err := readTable(path, "shipment_identifier", "product", "on_time")
	if err != nil {
		return nil, err
	}

	records := make([]LineItemRecord, 0, len(t.rows))
	for _, row := range t.rows {
		id, err := t.intField(row, "shipment_identifier")
		if err != nil {
			return nil, err
		}
		records = append(records, LineItemRecord{
			ShipmentID: id,
			Product:    t.field(row, "product"),
			OnTime:     t.field(row, "on_time"),
		})
	}
	return records, nil
}

func ReadManifestFile(path string) ([]ManifestRecord, error) {
	t, err := readTable(path,
		"shipment_identifier", "origin_warehouse", "destination_store", "driver_identifier")
	if err != nil {
		return nil, err
	}

	records := make([]ManifestRecord, 0, len(t.rows))
	for _, row := range t.rows {
		id, err := t.intField(row, "shipment_identifier")
		if err != nil {
			return nil, err
		}
		records = append(records, ManifestRecord{
			ShipmentID:       id,
			OriginWarehouse:  t.field(row, "origin_warehouse"),
			DestinationStore: t.field(row, "destination_store"),
			DriverIdentifier: t.field(row, "driver_identifier"),
		})
	}
	return records, nil
}

// ReadInputs loads all three spreadsheets up front. Any unreadable or
// malformed file aborts the run before the store is touched.
func ReadInputs(dispatchPath, lineItemPath, manifestPath string) (*Inputs, error) {
	dispatch, err := ReadDispatchFile(dispatchPath)
	if err != nil {
		return nil, err
	}
	lineItems, err := ReadLineItemFile(lineItemPath)
	if err != nil {
		return nil, err
	}
	manifest, err := ReadManifestFile(manifestPath)
	if err != nil {
		return nil, err
	}

	return &Inputs{
		Dispatch:       dispatch,
		LineItems:      lineItems,
		Manifest:       manifest,
		LineItemSource: filepath.Base(lineItemPath),
		ManifestSource: filepath.Base(manifestPath),
	}, nil
}
