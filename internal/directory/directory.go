// Package directory reads users and deliveries owned by other services.
// Nothing here writes; lookups go straight to SQL through sqlx.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"wallet_ledger/internal/domain"
)

// UserReader looks up users
type UserReader interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	FindByContact(ctx context.Context, contact string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// DeliveryReader looks up deliveries
type DeliveryReader interface {
	GetDelivery(ctx context.Context, id string) (*domain.Delivery, error)
}

// SQLDirectory implements UserReader and DeliveryReader
type SQLDirectory struct {
	DB *sqlx.DB
}

// NewSQLDirectory wraps db
func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{DB: db}
}

const userColumns = `id, username, name, email, phone, role, created_at`

// GetUser returns the user or domain.ErrUserNotFound
func (d *SQLDirectory) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	query := d.DB.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := d.DB.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByContact resolves an email address or a phone number to a user
func (d *SQLDirectory) FindByContact(ctx context.Context, contact string) (*domain.User, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, domain.ErrUserNotFound
	}
	var user domain.User
	query := d.DB.Rebind(`SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = ? OR phone = ? ORDER BY id LIMIT 1`)
	if err := d.DB.GetContext(ctx, &user, query, strings.ToLower(contact), contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user ordered by id
func (d *SQLDirectory) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := d.DB.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return users, nil
}

// GetDelivery returns the delivery or domain.ErrDeliveryNotFound
func (d *SQLDirectory) GetDelivery(ctx context.Context, id string) (*domain.Delivery, error) {
	var delivery domain.Delivery
	query := d.DB.Rebind(`SELECT id, type, sender_id, receiver_id, from_city, to_city FROM deliveries WHERE id = ?`)
	if err := d.DB.GetContext(ctx, &delivery, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, err
	}
	return &delivery, nil
}
