package storage

import (
	"context"
	"errors"
	"strings"

	"telegram-order-bot/internal/models"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the persistence collaborator for orders and reminders.
// Both the SQLite and MongoDB backends satisfy it.
type Store interface {
	Close() error

	// Kind names the backend ("sqlite" or "mongodb").
	Kind() string

	// Orders
	InsertOrder(ctx context.Context, o *models.Order) error
	FindAllOrders(ctx context.Context) ([]models.Order, error)

	// Reminders
	InsertReminder(ctx context.Context, r *models.Reminder) error
	UpdateReminder(ctx context.Context, r *models.Reminder) error
	FindAllReminders(ctx context.Context) ([]models.Reminder, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*Mongo)(nil)
)

// IsMongoURI reports whether uri selects the MongoDB backend.
func IsMongoURI(uri string) bool {
	return strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://")
}

// Open picks the backend from uri: a mongodb:// or mongodb+srv:// URI selects
// MongoDB, anything else is taken as an SQLite file path.
func Open(ctx context.Context, uri string) (Store, error) {
	if uri == "" {
		return nil, errors.New("storage: empty uri")
	}
	if IsMongoURI(uri) {
		return NewMongo(ctx, uri, DefaultMongoDatabase)
	}
	return New(uri)
}
