package event

import "time"

const (
	// OrderChangesTopic carries row-level change events for the orders table.
	OrderChangesTopic = "orders.changes"

	// AnnouncementsTopic carries synthesized-announcement jobs for the audio
	// collaborator.
	AnnouncementsTopic = "kds.announcements"

	KindInsert = "INSERT"
	KindUpdate = "UPDATE"
	KindDelete = "DELETE"
)

// OrderRecord is the wire form of an order row as the backing store emits it.
type OrderRecord struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	TableNo   string     `json:"table_no"`
	Price     float64    `json:"price"`
	Note      string     `json:"note,omitempty"`
	Status    string     `json:"status"`
	Priority  string     `json:"priority,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// OrderChangeEvent is a row-level INSERT/UPDATE/DELETE notification. Delivery
// is at-least-once and may be reordered; consumers treat each event as
// authoritative as of arrival.
type OrderChangeEvent struct {
	EventID    string       `json:"event_id"`
	Kind       string       `json:"kind"`
	OccurredAt time.Time    `json:"occurred_at"`
	New        *OrderRecord `json:"new,omitempty"`
	Old        *OrderRecord `json:"old,omitempty"`
}
