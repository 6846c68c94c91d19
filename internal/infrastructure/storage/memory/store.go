// Package memory provides an in-process implementation of every repository.
// It backs the "memory" storage mode and the service tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"flowdesk/internal/core/id"
	"flowdesk/internal/core/tx"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/domain/documents/sale"
)

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// Store holds all records. Write transactions are serialised by mu; the
// state is snapshotted when a transaction begins and restored if it fails.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	products     map[id.ID]product.Product
	customers    map[id.ID]customer.Customer
	invoices     map[id.ID]invoice.Invoice
	invoiceLines map[id.ID][]billing.LineItem
	sales        map[id.ID]sale.Sale
	saleLines    map[id.ID][]billing.LineItem
	sequences    map[string]int64
	outbox       []domain.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{state: &state{
		products:     make(map[id.ID]product.Product),
		customers:    make(map[id.ID]customer.Customer),
		invoices:     make(map[id.ID]invoice.Invoice),
		invoiceLines: make(map[id.ID][]billing.LineItem),
		sales:        make(map[id.ID]sale.Sale),
		saleLines:    make(map[id.ID][]billing.LineItem),
		sequences:    make(map[string]int64),
	}}
}

// clone copies every map. Entities are stored by value, line slices are
// copied, so the snapshot shares nothing mutable with the live state.
func (st *state) clone() *state {
	return &state{
		products:     maps.Clone(st.products),
		customers:    maps.Clone(st.customers),
		invoices:     maps.Clone(st.invoices),
		invoiceLines: cloneLines(st.invoiceLines),
		sales:        maps.Clone(st.sales),
		saleLines:    cloneLines(st.saleLines),
		sequences:    maps.Clone(st.sequences),
		outbox:       slices.Clone(st.outbox),
	}
}

func cloneLines(in map[id.ID][]billing.LineItem) map[id.ID][]billing.LineItem {
	out := make(map[id.ID][]billing.LineItem, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

// txKey marks a context that already holds the store lock.
type txKey struct{ store *Store }

func (s *Store) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{s}).(bool)
	return ok
}

// do runs fn with exclusive access to the state. Inside a transaction the
// lock is already held.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// TxManager implements tx.Manager for a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction executes fn while holding the store lock. Nested calls
// reuse the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s := m.store
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Repositories bundles the memory implementations.
type Repositories struct {
	Products  *ProductRepo
	Customers *CustomerRepo
	Invoices  *InvoiceRepo
	Sales     *SaleRepo
	Sequences *Sequences
	Outbox    *Outbox
	Reports   *ReportRepo
	TxManager *TxManager
}

// NewRepositories wires all repositories over one store.
func NewRepositories(store *Store) *Repositories {
	return &Repositories{
		Products:  &ProductRepo{store: store},
		Customers: &CustomerRepo{store: store},
		Invoices:  &InvoiceRepo{store: store},
		Sales:     &SaleRepo{store: store},
		Sequences: &Sequences{store: store},
		Outbox:    &Outbox{store: store},
		Reports:   &ReportRepo{store: store},
		TxManager: NewTxManager(store),
	}
}
