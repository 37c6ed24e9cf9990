package models

import "time"

// Order is one accepted order message, indexed by its pickup day.
type Order struct {
	DayKey      string    `db:"day_key"      bson:"yymmdd"       json:"day_key"`   // YYMMDD
	MonthKey    string    `db:"month_key"    bson:"yymm"         json:"month_key"` // YYMM
	Author      string    `db:"author"       bson:"author"       json:"author"`
	Permalink   string    `db:"permalink"    bson:"jump_url"     json:"permalink"`
	PickupDate  string    `db:"pickup_date"  bson:"pickup_date"  json:"pickup_date"` // raw text
	DealMethod  string    `db:"deal_method"  bson:"deal_method"  json:"deal_method"`
	Phone       string    `db:"phone"        bson:"phone"        json:"phone"`
	Remark      string    `db:"remark"       bson:"remark"       json:"remark"`
	FullMessage string    `db:"full_message" bson:"full_message" json:"full_message"`
	CreatedAt   time.Time `db:"created_at"   bson:"timestamp"    json:"created_at"`
	Fingerprint string    `db:"fingerprint"  bson:"fingerprint"  json:"fingerprint"` // sha256 of FullMessage
}

// Reminder is a scheduled notification owned by the user who posted the order
// (or issued the manual command).
type Reminder struct {
	ID          string    `db:"id"           bson:"_id"          json:"id"`
	UserID      int64     `db:"user_id"      bson:"user_id"      json:"user_id"`
	FireAt      time.Time `db:"fire_at"      bson:"time"         json:"fire_at"`
	Message     string    `db:"message"      bson:"message"      json:"message"`
	Author      string    `db:"author"       bson:"author"       json:"author"`
	Permalink   string    `db:"permalink"    bson:"jump_url"     json:"permalink"`
	PickupDate  string    `db:"pickup_date"  bson:"pickup_date"  json:"pickup_date"`
	DealMethod  string    `db:"deal_method"  bson:"deal_method"  json:"deal_method"`
	Phone       string    `db:"phone"        bson:"phone"        json:"phone"`
	Remark      string    `db:"remark"       bson:"remark"       json:"remark"`
	SummaryOnly bool      `db:"summary_only" bson:"summary_only" json:"summary_only"` // day-of reminder
	Sent        bool      `db:"sent"         bson:"sent"         json:"sent"`
}

// Fields are the labelled values pulled out of an order message.
// An empty string means the label was not present.
type Fields struct {
	Pickup     string
	DealMethod string
	Phone      string
	Remark     string
}

// Inbound is a chat message as handed over by the transport.
type Inbound struct {
	Text      string
	Author    string
	AuthorID  int64
	Permalink string
	Timestamp time.Time
}
