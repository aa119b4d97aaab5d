// Package report prints human-readable views of the loaded tables for
// operator inspection. It never writes to the store.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/fatih/color"

	"shipload/internal/store"
)

var heading = color.New(color.FgCyan, color.Bold)

// Print dumps the three entity tables, the shipments joined to their resolved
// location and driver names, and a bounded sample of line items joined to
// their product names.
func Print(ctx context.Context, st *store.Store, sampleLimit int) error {
	qb := st.Builder()

	sections := []struct {
		title string
		query squirrel.SelectBuilder
	}{
		{
			title: "Products",
			query: qb.Select("ProductID", "ProductName").From("Products").OrderBy("ProductID"),
		},
		{
			title: "Locations",
			query: qb.Select("LocationID", "LocationName").From("Locations").OrderBy("LocationID"),
		},
		{
			title: "Drivers",
			query: qb.Select("DriverID", "DriverIdentifier").From("Drivers").OrderBy("DriverID"),
		},
		{
			title: "Shipments",
			query: qb.Select(
				"s.ShipmentID",
				"ol.LocationName AS Origin",
				"dl.LocationName AS Destination",
				"d.DriverIdentifier AS Driver").
				From("Shipments s").
				Join("Locations ol ON s.OriginLocationID = ol.LocationID").
				Join("Locations dl ON s.DestinationLocationID = dl.LocationID").
				Join("Drivers d ON s.DriverID = d.DriverID").
				OrderBy("s.ShipmentID"),
		},
		{
			title: fmt.Sprintf("ShipmentLineItems (first %d)", sampleLimit),
			query: qb.Select("sli.ShipmentID", "p.ProductName", "sli.Quantity", "sli.OnTimeStatus").
				From("ShipmentLineItems sli").
				Join("Products p ON sli.ProductID = p.ProductID").
				OrderBy("sli.LineItemID").
				Limit(uint64(sampleLimit)),
		},
	}

	for _, section := range sections {
		heading.Printf("\n%s:\n", section.title)
		if err := printRows(ctx, st, section.query); err != nil {
			return fmt.Errorf("failed to report %s: %w", section.title, err)
		}
	}
	return nil
}

func printRows(ctx context.Context, st *store.Store, b squirrel.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	rows, err := st.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(columns, " | "))

	count := 0
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}

		fields := make([]string, len(columns))
		for i, val := range values {
			switch v := val.(type) {
			case nil:
				fields[i] = "NULL"
			case []byte:
				fields[i] = string(v)
			default:
				fields[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Println(strings.Join(fields, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("(no rows)")
	}
	return nil
}
