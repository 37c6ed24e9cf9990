package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"telegram-order-bot/internal/models"
)

const (
	DefaultMongoDatabase = "reminder_bot"

	ordersCollection    = "orders"
	remindersCollection = "reminders"
)

// Mongo is the MongoDB backend. Documents use the field names of the models'
// bson tags (yymmdd, jump_url, time, ...).
type Mongo struct {
	client    *mongo.Client
	orders    *mongo.Collection
	reminders *mongo.Collection
}

// NewMongo connects, pings the primary and makes sure the lookup indexes exist.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(45 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:    client,
		orders:    db.Collection(ordersCollection),
		reminders: db.Collection(remindersCollection),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "yymmdd", Value: 1}}},
		{Keys: bson.D{{Key: "yymm", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	if _, err := m.reminders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create reminder indexes: %w", err)
	}
	return nil
}

func (m *Mongo) Kind() string { return "mongodb" }

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// ---------- orders ----------------------------------------------------------

func (m *Mongo) InsertOrder(ctx context.Context, o *models.Order) error {
	if _, err := m.orders.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *Mongo) FindAllOrders(ctx context.Context) ([]models.Order, error) {
	cur, err := m.orders.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	var res []models.Order
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return res, nil
}

// ---------- reminders -------------------------------------------------------

// InsertReminder upserts r by ID. An existing document keeps its fields and
// only has its sent flag raised, so a retried insert is safe.
func (m *Mongo) InsertReminder(ctx context.Context, r *models.Reminder) error {
	_, err := m.reminders.UpdateOne(ctx,
		reminderFilter(r.ID),
		bson.M{
			"$setOnInsert": bson.M{
				"user_id":      r.UserID,
				"time":         r.FireAt,
				"message":      r.Message,
				"author":       r.Author,
				"jump_url":     r.Permalink,
				"pickup_date":  r.PickupDate,
				"deal_method":  r.DealMethod,
				"phone":        r.Phone,
				"remark":       r.Remark,
				"summary_only": r.SummaryOnly,
			},
			"$max": bson.M{"sent": r.Sent},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// UpdateReminder raises the sent flag of the reminder with r.ID; $max keeps it
// from ever going back to false.
func (m *Mongo) UpdateReminder(ctx context.Context, r *models.Reminder) error {
	res, err := m.reminders.UpdateOne(ctx,
		reminderFilter(r.ID),
		bson.M{"$max": bson.M{"sent": r.Sent}},
	)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update reminder %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// reminderFilter matches by _id. Older documents carry ObjectIDs, which decode
// into their hex form; those are converted back for the lookup.
func reminderFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func (m *Mongo) FindAllReminders(ctx context.Context) ([]models.Reminder, error) {
	cur, err := m.reminders.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find reminders: %w", err)
	}
	var res []models.Reminder
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return res, nil
}
