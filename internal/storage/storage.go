package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"telegram-order-bot/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

// DB is the SQLite backend.
type DB struct{ *sql.DB }

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: single writer

	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

func (d *DB) Kind() string { return "sqlite" }

// ---------- orders ----------------------------------------------------------

func (d *DB) InsertOrder(ctx context.Context, o *models.Order) error {
	_, err := d.ExecContext(ctx, `
        INSERT INTO orders (day_key, month_key, author, permalink, pickup_date,
            deal_method, phone, remark, full_message, fingerprint, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?)
    `, o.DayKey, o.MonthKey, o.Author, o.Permalink, o.PickupDate,
		o.DealMethod, o.Phone, o.Remark, o.FullMessage, o.Fingerprint, o.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (d *DB) FindAllOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT day_key, month_key, author, permalink, pickup_date, deal_method,
               phone, remark, full_message, fingerprint, created_at
        FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer rows.Close()

	var res []models.Order
	for rows.Next() {
		var o models.Order
		var created int64
		if err := rows.Scan(
			&o.DayKey, &o.MonthKey, &o.Author, &o.Permalink, &o.PickupDate, &o.DealMethod,
			&o.Phone, &o.Remark, &o.FullMessage, &o.Fingerprint, &created,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.CreatedAt = time.Unix(created, 0)
		res = append(res, o)
	}
	return res, rows.Err()
}

// ---------- reminders -------------------------------------------------------

// InsertReminder writes r. Writing an existing ID again only raises its sent
// flag, so a retried insert is safe.
func (d *DB) InsertReminder(ctx context.Context, r *models.Reminder) error {
	_, err := d.ExecContext(ctx, `
        INSERT INTO reminders (id, user_id, fire_at, message, author, permalink,
            pickup_date, deal_method, phone, remark, summary_only, sent)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET sent = MAX(sent, excluded.sent)
    `, r.ID, r.UserID, r.FireAt.Unix(), r.Message, r.Author, r.Permalink,
		r.PickupDate, r.DealMethod, r.Phone, r.Remark, r.SummaryOnly, r.Sent)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// UpdateReminder writes the sent flag of the reminder with r.ID. The flag only
// moves forward, so a stale update cannot clear it.
func (d *DB) UpdateReminder(ctx context.Context, r *models.Reminder) error {
	res, err := d.ExecContext(ctx, `
        UPDATE reminders SET sent = MAX(sent, ?) WHERE id = ?`, r.Sent, r.ID)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update reminder %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

func (d *DB) FindAllReminders(ctx context.Context) ([]models.Reminder, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT id, user_id, fire_at, message, author, permalink, pickup_date,
               deal_method, phone, remark, summary_only, sent
        FROM reminders ORDER BY fire_at`)
	if err != nil {
		return nil, fmt.Errorf("find reminders: %w", err)
	}
	defer rows.Close()

	var res []models.Reminder
	for rows.Next() {
		var r models.Reminder
		var fireAt int64
		if err := rows.Scan(
			&r.ID, &r.UserID, &fireAt, &r.Message, &r.Author, &r.Permalink, &r.PickupDate,
			&r.DealMethod, &r.Phone, &r.Remark, &r.SummaryOnly, &r.Sent,
		); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.FireAt = time.Unix(fireAt, 0)
		res = append(res, r)
	}
	return res, rows.Err()
}
