// README: Assignment store backed by PostgreSQL through database/sql.
package identity

import (
	"context"
	"database/sql"
	"fmt"

	"taxisync/internal/types"
)

// SQLStore reads driver_vehicle_assignments:
//
//	callsign TEXT, driver_id TEXT, driver_name TEXT, phone TEXT NULL,
//	licence_number TEXT NULL, active BOOLEAN, assigned_at TIMESTAMPTZ
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ListAssignments returns active assignments, newest first within a normalized callsign.
func (s *SQLStore) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT callsign, driver_id, driver_name, phone, licence_number
		FROM driver_vehicle_assignments
		WHERE active = TRUE
		ORDER BY upper(trim(callsign)), assigned_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var (
			a              Assignment
			driverID       string
			phone, licence sql.NullString
		)
		if err := rows.Scan(&a.Callsign, &driverID, &a.Driver.Name, &phone, &licence); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.Driver.DriverID = types.ID(driverID)
		a.Driver.Phone = phone.String
		a.Driver.LicenceNumber = licence.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}
