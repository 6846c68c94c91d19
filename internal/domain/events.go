package domain

import (
	"context"

	"flowdesk/internal/core/id"
)

// Event types written to the outbox.
const (
	EventSaleCreated      = "sale.created"
	EventSaleRefunded     = "sale.refunded"
	EventInvoiceCreated   = "invoice.created"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceOverdue   = "invoice.overdue"
	EventStockLow         = "product.stock_low"
	EventCustomerTierRose = "customer.tier_changed"
)

// Event is a domain fact published in the same transaction that produced it.
type Event struct {
	Type          string
	AggregateType string
	AggregateID   id.ID
	OwnerID       id.ID
	Payload       any
}

// EventPublisher records events. Implementations must join the transaction
// carried by ctx so an event exists if and only if its change was committed.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }
