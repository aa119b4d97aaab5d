package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"shipload/internal/store"
)

func loadedTestStore(t *testing.T) *store.Store {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shipments.db")
	st, err := store.Open(ctx, "sqlite", "sqlite://"+path)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	for _, stmt := range []string{
		"INSERT INTO Products (ProductName) VALUES ('Widget')",
		"INSERT INTO Locations (LocationName) VALUES ('WH1')",
		"INSERT INTO Locations (LocationName) VALUES ('ST1')",
		"INSERT INTO Drivers (DriverIdentifier) VALUES ('D1')",
		"INSERT INTO Shipments (ShipmentID, OriginLocationID, DestinationLocationID, DriverID) VALUES (100, 1, 2, 1)",
		"INSERT INTO ShipmentLineItems (ShipmentID, ProductID, Quantity, OnTimeStatus) VALUES (100, 1, 1, 'Yes')",
	} {
		if _, err := st.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to seed store: %v", err)
		}
	}
	return st
}

func TestPerformJSON(t *testing.T) {
	ctx := context.Background()
	st := loadedTestStore(t)
	exportPath := t.TempDir()

	artifact, err := Perform(ctx, st, exportPath, "json")
	if err != nil {
		t.Fatalf("Perform failed: %v", err)
	}
	if !strings.HasSuffix(artifact, ".json") {
		t.Errorf("Expected a .json artifact, got %s", artifact)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("Artifact not written: %v", err)
	}

	entries, err := os.ReadDir(exportPath)
	if err != nil {
		t.Fatalf("Failed to list export dir: %v", err)
	}
	var summaryPath string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "summary_") && strings.HasSuffix(entry.Name(), ".yaml") {
			summaryPath = filepath.Join(exportPath, entry.Name())
		}
	}
	if summaryPath == "" {
		t.Fatal("No summary yaml written")
	}

	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	var sum summary
	if err := yaml.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("Failed to parse summary yaml: %v", err)
	}
	if sum.Format != "json" {
		t.Errorf("Expected format json, got %s", sum.Format)
	}
	if sum.Tables["Products"] != 1 || sum.Tables["Locations"] != 2 || sum.Tables["Shipments"] != 1 {
		t.Errorf("Unexpected table counts: %v", sum.Tables)
	}
}

func TestPerformCSV(t *testing.T) {
	ctx := context.Background()
	st := loadedTestStore(t)
	exportPath := t.TempDir()

	dir, err := Perform(ctx, st, exportPath, "csv")
	if err != nil {
		t.Fatalf("Perform failed: %v", err)
	}

	for _, table := range store.Tables {
		if _, err := os.Stat(filepath.Join(dir, table+".csv")); err != nil {
			t.Errorf("Missing CSV for %s: %v", table, err)
		}
	}
}

func TestPerformUnknownFormat(t *testing.T) {
	ctx := context.Background()
	st := loadedTestStore(t)

	if _, err := Perform(ctx, st, t.TempDir(), "xml"); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}
