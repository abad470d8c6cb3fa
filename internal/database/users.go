package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinylbook/internal/models"
)

const userColumns = `id, username, password, full_name, phone, email, address, role, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, password, full_name, phone, email, address, role, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		user.Username,
		user.Password,
		user.FullName,
		nullableString(user.Phone),
		user.Email,
		user.Address,
		user.Role,
		now,
		now,
	)
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return db.queryUser(ctx, query, id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return db.queryUser(ctx, query, username)
}

// GetUserByPhone returns the first user with the given phone number.
func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = ? ORDER BY id ASC LIMIT 1`
	return db.queryUser(ctx, query, phone)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var phone sql.NullString
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Password, &u.FullName, &phone,
		&u.Email, &u.Address, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Phone = phone.String
	return &u, nil
}

// ListUsers returns all users, optionally filtered by role.
func (db *DB) ListUsers(ctx context.Context, role string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var phone sql.NullString
		err := rows.Scan(
			&u.ID, &u.Username, &u.Password, &u.FullName, &phone,
			&u.Email, &u.Address, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Phone = phone.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// userUpdateColumns fixes the column order for partial user updates.
var userUpdateColumns = []string{"username", "password", "full_name", "phone", "email", "address", "role"}

// UpdateUser applies a partial update. fields keys must be column names from
// userUpdateColumns; unknown keys are ignored.
func (db *DB) UpdateUser(ctx context.Context, id int64, fields map[string]any) (*models.User, error) {
	query := `UPDATE users SET updated_at = ?`
	args := []any{time.Now()}
	for _, col := range userUpdateColumns {
		if val, ok := fields[col]; ok {
			// An empty phone means "no phone"; store NULL so cleared
			// phones never collide on the unique index.
			if col == "phone" {
				if s, isStr := val.(string); isStr {
					val = nullableString(s)
				}
			}
			query += `, ` + col + ` = ?`
			args = append(args, val)
		}
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetUserByID(ctx, id)
}

func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTechnicianLoad returns every technician with the number of active
// (neither cancelled nor completed) bookings assigned to them on the date.
func (db *DB) ListTechnicianLoad(ctx context.Context, date time.Time) ([]models.TechnicianLoad, error) {
	query := `SELECT u.id, u.username, u.full_name, COALESCE(u.phone, ''),
                     COUNT(b.id)
              FROM users u
              LEFT JOIN bookings b ON b.technician_id = u.id
                  AND date(b.booking_date) = date(?)
                  AND b.status NOT IN (?, ?)
              WHERE u.role = ?
              GROUP BY u.id
              ORDER BY u.full_name ASC`
	rows, err := db.QueryContext(ctx, query,
		date.Format("2006-01-02"), models.StatusCancelled, models.StatusDone, models.RoleTechnician)
	if err != nil {
		return nil, fmt.Errorf("failed to list technician load: %w", err)
	}
	defer rows.Close()

	var loads []models.TechnicianLoad
	for rows.Next() {
		var l models.TechnicianLoad
		err := rows.Scan(
			&l.Technician.ID, &l.Technician.Username, &l.Technician.FullName,
			&l.Technician.Phone, &l.ActiveBookings,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan technician load: %w", err)
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
