package invoice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/numerator"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx      context.Context
	ownerID  id.ID
	now      time.Time
	repos    *memory.Repositories
	invoices *invoice.Service
	customer *customer.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ownerID: id.New(),
		now:     time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		repos:   memory.NewRepositories(memory.New()),
	}
	f.ctx = appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: f.ownerID})
	f.invoices = invoice.NewService(f.repos.Invoices, f.repos.Customers, f.repos.Sequences, f.repos.TxManager, f.repos.Outbox).
		WithClock(func() time.Time { return f.now })

	f.customer = customer.NewCustomer(f.ownerID, "Acme Stores", "+254700000001")
	require.NoError(t, f.repos.Customers.Create(f.ctx, f.customer))
	return f
}

func (f *fixture) draft(lines ...billing.LineItem) *invoice.Invoice {
	if len(lines) == 0 {
		lines = []billing.LineItem{{
			ProductID: id.New(),
			Name:      "Consulting",
			Quantity:  2,
			UnitPrice: types.MustMoney("500"),
		}}
	}
	return &invoice.Invoice{
		CustomerID: f.customer.ID,
		IssueDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Lines:      lines,
	}
}

func TestCreate_DerivesTotalsNumberAndLifecycle(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	doc.Total = types.MustMoney("1")
	doc.RemainingAmount = types.MustMoney("1")

	require.NoError(t, f.invoices.Create(f.ctx, doc))

	assert.Equal(t, "INV-2024-0001", doc.Number)
	assert.True(t, types.MustMoney("1000").Equal(doc.Total))
	assert.True(t, types.MustMoney("1000").Equal(doc.RemainingAmount))
	assert.Equal(t, invoice.TermsNet30, doc.PaymentTerms)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), doc.DueDate)
	assert.Equal(t, invoice.StatusDraft, doc.Status)
	assert.Equal(t, invoice.PaymentUnpaid, doc.PaymentStatus)
	assert.Equal(t, billing.CurrencyNGN, doc.Currency)

	got, err := f.invoices.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Number, got.Number)
	require.Len(t, got.Lines, 1)
	assert.True(t, types.MustMoney("1000").Equal(got.Lines[0].Total))

	second := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, second))
	assert.Equal(t, "INV-2024-0002", second.Number)
}

func TestCreate_KeepsSuppliedDueDate(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	doc.DueDate = due

	require.NoError(t, f.invoices.Create(f.ctx, doc))
	assert.Equal(t, due, doc.DueDate)
}

func TestCreate_PaidOnCreation(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	doc.PaidAmount = types.MustMoney("1000")

	require.NoError(t, f.invoices.Create(f.ctx, doc))
	assert.Equal(t, invoice.StatusPaid, doc.Status)
	assert.Equal(t, invoice.PaymentPaid, doc.PaymentStatus)
	require.NotNil(t, doc.PaidDate)
	assert.True(t, doc.RemainingAmount.IsZero())

	var published []string
	for _, e := range f.repos.Outbox.Events() {
		published = append(published, e.Type)
	}
	assert.Equal(t, []string{domain.EventInvoiceCreated, domain.EventInvoicePaid}, published)
}

func TestCreate_UnknownCustomer(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	doc.CustomerID = id.New()

	err := f.invoices.Create(f.ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	// Number was not consumed.
	ok := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, ok))
	assert.Equal(t, "INV-2024-0001", ok.Number)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(inv *invoice.Invoice)
	}{
		{"missing customer", func(inv *invoice.Invoice) { inv.CustomerID = id.Nil() }},
		{"no lines", func(inv *invoice.Invoice) { inv.Lines = nil }},
		{"negative paid", func(inv *invoice.Invoice) { inv.PaidAmount = types.MustMoney("-1") }},
		{"bad terms", func(inv *invoice.Invoice) { inv.PaymentTerms = "net90" }},
		{"bad template", func(inv *invoice.Invoice) { inv.Template = "fancy" }},
		{"due before issue", func(inv *invoice.Invoice) { inv.DueDate = inv.IssueDate.AddDate(0, 0, -1) }},
		{"negative price", func(inv *invoice.Invoice) { inv.Lines[0].UnitPrice = types.MustMoney("-5") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := f.draft()
			tt.mutate(doc)
			err := f.invoices.Create(f.ctx, doc)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err), err.Error())
		})
	}
}

func TestCreate_NumberingFailure(t *testing.T) {
	f := newFixture(t)
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(context.Context, numerator.Config, id.ID, time.Time) (string, error) {
			return "", apperror.NewNumberingConflict("INV").WithCause(errors.New("db down"))
		},
	}
	svc := invoice.NewService(f.repos.Invoices, f.repos.Customers, gen, f.repos.TxManager, nil)

	err := svc.Create(f.ctx, f.draft())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNumberingConflict))
	assert.Equal(t, 409, apperror.GetHTTPStatus(err))
}

func TestCreate_DuplicateNumber(t *testing.T) {
	f := newFixture(t)
	first := f.draft()
	first.Number = "INV-2024-0042"
	require.NoError(t, f.invoices.Create(f.ctx, first))

	dup := f.draft()
	dup.Number = "INV-2024-0042"
	err := f.invoices.Create(f.ctx, dup)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNumberingConflict))
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, doc))

	got, err := f.invoices.RecordPayment(f.ctx, doc.ID, types.MustMoney("400"), billing.PaymentTransfer)
	require.NoError(t, err)
	assert.Equal(t, invoice.PaymentPartial, got.PaymentStatus)
	assert.Equal(t, invoice.StatusPartial, got.Status)
	assert.True(t, types.MustMoney("600").Equal(got.RemainingAmount))
	assert.Nil(t, got.PaidDate)
	assert.Len(t, got.Lines, 1)

	got, err = f.invoices.RecordPayment(f.ctx, doc.ID, types.MustMoney("600"), billing.PaymentCheque)
	require.NoError(t, err)
	assert.Equal(t, invoice.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, invoice.StatusPaid, got.Status)
	assert.Equal(t, billing.PaymentCheque, got.PaymentMethod)
	require.NotNil(t, got.PaidDate)
	assert.Equal(t, f.now, *got.PaidDate)
	assert.True(t, got.RemainingAmount.IsZero())

	_, err = f.invoices.RecordPayment(f.ctx, doc.ID, types.Zero(), "")
	assert.True(t, apperror.IsValidation(err))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	open := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, open))

	got, err := f.invoices.Cancel(f.ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusCancelled, got.Status)

	_, err = f.invoices.RecordPayment(f.ctx, open.ID, types.MustMoney("10"), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvoiceCancelled))

	paid := f.draft()
	paid.PaidAmount = types.MustMoney("1000")
	require.NoError(t, f.invoices.Create(f.ctx, paid))
	_, err = f.invoices.Cancel(f.ctx, paid.ID)
	require.Error(t, err)
	assert.Equal(t, 422, apperror.GetHTTPStatus(err))
}

func TestMarkSentAndReminders(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, doc))

	got, err := f.invoices.MarkSent(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailSent)
	assert.Equal(t, invoice.StatusSent, got.Status)
	require.NotNil(t, got.EmailSentDate)

	got, err = f.invoices.RecordReminder(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RemindersSent)
	require.NotNil(t, got.LastReminderDate)
}

func TestUpdate_RecomputesAndKeepsNumber(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, doc))
	_, err := f.invoices.RecordPayment(f.ctx, doc.ID, types.MustMoney("100"), billing.PaymentCash)
	require.NoError(t, err)

	edit := f.draft(billing.LineItem{
		ProductID: id.New(),
		Name:      "Support",
		Quantity:  3,
		UnitPrice: types.MustMoney("100"),
		Tax:       types.MustMoney("15"),
	})
	edit.ID = doc.ID
	edit.Number = "HACKED"
	edit.PaidAmount = types.MustMoney("999")

	require.NoError(t, f.invoices.Update(f.ctx, edit))
	assert.Equal(t, doc.Number, edit.Number)
	assert.True(t, types.MustMoney("315").Equal(edit.Total))
	assert.True(t, types.MustMoney("100").Equal(edit.PaidAmount), "paid amount comes from storage")
	assert.True(t, types.MustMoney("215").Equal(edit.RemainingAmount))
	assert.Equal(t, invoice.StatusPartial, edit.Status)

	got, err := f.invoices.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Support", got.Lines[0].Name)
	assert.Equal(t, 3, got.Version)
}

func TestUpdate_KeepsPaymentRecordedAfterRead(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, doc))

	snapshot, err := f.invoices.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)

	_, err = f.invoices.RecordPayment(f.ctx, doc.ID, types.MustMoney("400"), billing.PaymentTransfer)
	require.NoError(t, err)

	snapshot.Notes = "deliver to back door"
	snapshot.Version = 0
	require.NoError(t, f.invoices.Update(f.ctx, snapshot))

	got, err := f.invoices.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "deliver to back door", got.Notes)
	assert.True(t, types.MustMoney("400").Equal(got.PaidAmount), got.PaidAmount.String())
	assert.True(t, types.MustMoney("600").Equal(got.RemainingAmount))
	assert.Equal(t, invoice.PaymentPartial, got.PaymentStatus)
}

func TestUpdate_LoadedVersionConflictsWithPayment(t *testing.T) {
	f := newFixture(t)
	doc := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, doc))

	snapshot, err := f.invoices.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	_, err = f.invoices.RecordPayment(f.ctx, doc.ID, types.MustMoney("400"), billing.PaymentTransfer)
	require.NoError(t, err)

	snapshot.Notes = "stale"
	err = f.invoices.Update(f.ctx, snapshot)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))
}

func TestRefreshOverdue(t *testing.T) {
	f := newFixture(t)
	due := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, due))
	paid := f.draft()
	paid.PaidAmount = types.MustMoney("1000")
	require.NoError(t, f.invoices.Create(f.ctx, paid))

	f.now = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	n, err := f.invoices.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.invoices.GetByID(f.ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOverdue, got.Status)

	n, err = f.invoices.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingOverduePublisher struct {
	next  domain.EventPublisher
	allow int
}

func (p *failingOverduePublisher) Publish(ctx context.Context, e domain.Event) error {
	if e.Type == domain.EventInvoiceOverdue {
		if p.allow == 0 {
			return errors.New("outbox unavailable")
		}
		p.allow--
	}
	return p.next.Publish(ctx, e)
}

func TestRefreshOverdue_CountsOnlyCommitted(t *testing.T) {
	f := newFixture(t)
	first := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, first))
	second := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, second))

	pub := &failingOverduePublisher{next: f.repos.Outbox, allow: 1}
	svc := invoice.NewService(f.repos.Invoices, f.repos.Customers, f.repos.Sequences, f.repos.TxManager, pub).
		WithClock(func() time.Time { return time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC) })

	n, err := svc.RefreshOverdue(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	overdue := 0
	for _, doc := range []*invoice.Invoice{first, second} {
		got, err := f.invoices.GetByID(f.ctx, doc.ID)
		require.NoError(t, err)
		if got.Status == invoice.StatusOverdue {
			overdue++
		}
	}
	assert.Equal(t, 1, overdue)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	a := f.draft()
	require.NoError(t, f.invoices.Create(f.ctx, a))
	b := f.draft()
	b.PaidAmount = types.MustMoney("1000")
	require.NoError(t, f.invoices.Create(f.ctx, b))

	res, err := f.invoices.List(f.ctx, invoice.ListFilter{PaymentStatus: invoice.PaymentPaid})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, b.ID, res.Items[0].ID)

	other := appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: id.New()})
	res, err = f.invoices.List(other, invoice.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
