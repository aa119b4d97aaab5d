package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"shipload/internal/store"
)

// entityKind parameterizes the lookup-or-insert over the three name-keyed
// entity tables.
type entityKind struct {
	table      string
	idColumn   string
	nameColumn string
}

var (
	productEntity  = entityKind{"Products", "ProductID", "ProductName"}
	locationEntity = entityKind{"Locations", "LocationID", "LocationName"}
	driverEntity   = entityKind{"Drivers", "DriverID", "DriverIdentifier"}
)

// resolveEntity returns the surrogate key for an exact, case-sensitive name
// match, inserting a new row on first encounter. Lookup-then-insert is not
// atomic; the single-writer assumption makes that acceptable.
func resolveEntity(ctx context.Context, st *store.Store, run store.Runner, kind entityKind, name string) (int64, error) {
	qb := st.Builder()

	query, args, err := qb.Select(kind.idColumn).
		From(kind.table).
		Where(squirrel.Eq{kind.nameColumn: name}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	err = run.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up %s %q: %w", kind.table, name, err)
	}

	insert := qb.Insert(kind.table).Columns(kind.nameColumn).Values(name)

	if st.Dialect() == store.DialectPostgres {
		query, args, err := insert.Suffix("RETURNING " + kind.idColumn).ToSql()
		if err != nil {
			return 0, err
		}
		if err := run.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert %s %q: %w", kind.table, name, err)
		}
		return id, nil
	}

	query, args, err = insert.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := run.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s %q: %w", kind.table, name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read generated id for %s %q: %w", kind.table, name, err)
	}
	return id, nil
}
