package store

import (
	"context"
	"fmt"
)

// Tables lists the schema tables, parents before children.
var Tables = []string{"Products", "Locations", "Drivers", "Shipments", "ShipmentLineItems"}

func (s *Store) schemaStatements() []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	nameType := "TEXT"
	idType := "INTEGER"

	switch s.dialect {
	case DialectPostgres:
		serial = "SERIAL PRIMARY KEY"
	case DialectMySQL:
		serial = "INTEGER AUTO_INCREMENT PRIMARY KEY"
		// Binary collation keeps name matching case-sensitive, like the
		// sqlite and postgres defaults.
		nameType = "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS Products (
			ProductID %s,
			ProductName %s NOT NULL UNIQUE
		)`, serial, nameType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS Locations (
			LocationID %s,
			LocationName %s NOT NULL UNIQUE
		)`, serial, nameType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS Drivers (
			DriverID %s,
			DriverIdentifier %s NOT NULL UNIQUE
		)`, serial, nameType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS Shipments (
			ShipmentID %[1]s PRIMARY KEY,
			OriginLocationID %[1]s NOT NULL,
			DestinationLocationID %[1]s NOT NULL,
			DriverID %[1]s NOT NULL,
			FOREIGN KEY (OriginLocationID) REFERENCES Locations(LocationID),
			FOREIGN KEY (DestinationLocationID) REFERENCES Locations(LocationID),
			FOREIGN KEY (DriverID) REFERENCES Drivers(DriverID)
		)`, idType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ShipmentLineItems (
			LineItemID %[1]s,
			ShipmentID %[2]s NOT NULL,
			ProductID %[2]s NOT NULL,
			Quantity %[2]s NOT NULL,
			OnTimeStatus %[3]s,
			FOREIGN KEY (ShipmentID) REFERENCES Shipments(ShipmentID),
			FOREIGN KEY (ProductID) REFERENCES Products(ProductID)
		)`, serial, idType, nameType),
	}
}

// InitSchema creates the five tables if they do not exist yet. All statements
// run inside one transaction so a partial schema never persists.
func (s *Store) InitSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range s.schemaStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}
