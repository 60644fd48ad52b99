package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/imamik/devsim/internal/provisioning"
)

// ErrNotFound is returned when a device or enrollment does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS enrollments (
	device_id TEXT PRIMARY KEY,
	environment TEXT NOT NULL,
	registration_id TEXT NOT NULL,
	enrolled_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	environment TEXT NOT NULL,
	equipment_no TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	last_activity TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS devices_created_at ON devices (created_at);
`

// Store is the SQLite-backed device registry.
type Store struct {
	db *sql.DB
}

// Open opens or creates the registry at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set registry journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set registry busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize registry schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Enrollment is a device known to the provisioning service.
type Enrollment struct {
	DeviceID       string
	Environment    string
	RegistrationID string
	EnrolledAt     time.Time
}

// SaveEnrollment creates or replaces the enrollment of a device.
func (s *Store) SaveEnrollment(ctx context.Context, e Enrollment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (device_id, environment, registration_id, enrolled_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
		 environment = excluded.environment,
		 registration_id = excluded.registration_id,
		 enrolled_at = excluded.enrolled_at`,
		e.DeviceID, e.Environment, e.RegistrationID, formatTime(e.EnrolledAt),
	)
	if err != nil {
		return fmt.Errorf("save enrollment %q: %w", e.DeviceID, err)
	}
	return nil
}

// GetEnrollment returns the enrollment of a device, or ErrNotFound.
func (s *Store) GetEnrollment(ctx context.Context, deviceID string) (Enrollment, error) {
	var (
		e          Enrollment
		enrolledAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT device_id, environment, registration_id, enrolled_at FROM enrollments WHERE device_id = ?`,
		deviceID,
	).Scan(&e.DeviceID, &e.Environment, &e.RegistrationID, &enrolledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Enrollment{}, fmt.Errorf("enrollment %q: %w", deviceID, ErrNotFound)
		}
		return Enrollment{}, fmt.Errorf("query enrollment %q: %w", deviceID, err)
	}
	if e.EnrolledAt, err = parseTime(enrolledAt); err != nil {
		return Enrollment{}, fmt.Errorf("parse enrollment %q: %w", deviceID, err)
	}
	return e, nil
}

// SaveDevice creates a device or replaces an earlier record with the same id.
func (s *Store) SaveDevice(ctx context.Context, d provisioning.DeviceRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (id, type, environment, equipment_no, organization, description, status, created_at, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 type = excluded.type,
		 environment = excluded.environment,
		 equipment_no = excluded.equipment_no,
		 organization = excluded.organization,
		 description = excluded.description,
		 status = excluded.status,
		 created_at = excluded.created_at,
		 last_activity = excluded.last_activity`,
		d.ID, d.Type, d.Environment, d.EquipmentNo, d.Organization, d.Description, d.Status,
		formatTime(d.CreatedAt), formatTime(d.LastActivity),
	)
	if err != nil {
		return fmt.Errorf("save device %q: %w", d.ID, err)
	}
	return nil
}

// SetDeviceStatus updates the status and last activity of a device.
func (s *Store) SetDeviceStatus(ctx context.Context, id, status string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET status = ?, last_activity = ? WHERE id = ?`,
		status, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("update device %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update device %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("device %q: %w", id, ErrNotFound)
	}
	return nil
}

const deviceColumns = `id, type, environment, equipment_no, organization, description, status, created_at, last_activity`

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (provisioning.DeviceRecord, error) {
	var (
		d                       provisioning.DeviceRecord
		createdAt, lastActivity string
	)
	if err := row.Scan(&d.ID, &d.Type, &d.Environment, &d.EquipmentNo, &d.Organization,
		&d.Description, &d.Status, &createdAt, &lastActivity); err != nil {
		return provisioning.DeviceRecord{}, err
	}
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return provisioning.DeviceRecord{}, err
	}
	if d.LastActivity, err = parseTime(lastActivity); err != nil {
		return provisioning.DeviceRecord{}, err
	}
	return d, nil
}

// GetDevice returns a device, or ErrNotFound.
func (s *Store) GetDevice(ctx context.Context, id string) (*provisioning.DeviceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query device %q: %w", id, err)
	}
	return &d, nil
}

// ListDevices returns all devices, newest first.
func (s *Store) ListDevices(ctx context.Context) ([]provisioning.DeviceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	out := make([]provisioning.DeviceRecord, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device rows: %w", err)
	}
	return out, nil
}

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
