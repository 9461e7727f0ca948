package domain

import "time"

// Order is the minimal view of the order aggregate this pipeline needs:
// its identity and current status. The rest of the aggregate (items, stock,
// shipment, customer notification) lives behind the OrderStore port.
type Order struct {
	ID        int64       `json:"id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
