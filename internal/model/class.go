package model

import "time"

// Class is a bookable class offered by a seller (fitness center). A class
// carries a list price in points, a default capacity for its sessions and an
// optional weekly recurring schedule stored as raw JSON text.
//
// Fields:
//
//	ID          – primary key identifier.
//	SellerID    – user ID of the seller that owns the class.
//	Name        – display name.
//	PricePoints – list price of one session in points.
//	Capacity    – default number of seats per generated session.
//	Schedule    – raw schedule definition ({"monday":"10:00,18:00"}), nil when absent.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Class struct {
	ID          uint64    // classes.id
	SellerID    uint64    // classes.seller_id
	Name        string    // classes.name
	PricePoints int64     // classes.price_points
	Capacity    int       // classes.capacity
	Schedule    *string   // classes.schedule (nullable JSON)
	CreatedAt   time.Time // classes.created_at
	UpdatedAt   time.Time // classes.updated_at
}
