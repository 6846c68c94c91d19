package invoice

import (
	"time"
)

var termDays = map[PaymentTerms]int{
	TermsImmediate: 0,
	TermsNet15:     15,
	TermsNet30:     30,
	TermsNet45:     45,
	TermsNet60:     60,
}

// DueDateFor returns issueDate plus the offset of terms.
// Unknown terms behave like immediate.
func DueDateFor(terms PaymentTerms, issueDate time.Time) time.Time {
	return issueDate.AddDate(0, 0, termDays[terms])
}

// DeriveLifecycle recomputes every derived field of inv as of now. It is
// pure and runs on every write path after totals have been recomputed.
//
// Order:
//  1. IssueDate defaults to now; DueDate, when absent, comes from PaymentTerms.
//  2. RemainingAmount = Total - PaidAmount.
//  3. PaymentStatus from PaidAmount (unpaid / paid / partial); the first
//     time it becomes paid PaidDate is stamped, and it is cleared whenever
//     the invoice is no longer fully paid.
//  4. Status: paid when paid, partial when partial, overdue when DueDate has
//     passed and the invoice is not paid. Statuses set by people (draft, sent)
//     are kept otherwise; a cancelled invoice keeps its status.
func DeriveLifecycle(inv *Invoice, now time.Time) {
	now = now.UTC()
	inv.applyDefaults()

	if inv.IssueDate.IsZero() {
		inv.IssueDate = now
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = DueDateFor(inv.PaymentTerms, inv.IssueDate)
	}

	inv.RemainingAmount = inv.Total.Sub(inv.PaidAmount)

	switch {
	case inv.PaidAmount.IsZero():
		inv.PaymentStatus = PaymentUnpaid
		inv.PaidDate = nil
	case inv.PaidAmount.GreaterThanOrEqual(inv.Total):
		inv.PaymentStatus = PaymentPaid
		if inv.PaidDate == nil {
			paid := now
			inv.PaidDate = &paid
		}
	default:
		inv.PaymentStatus = PaymentPartial
		inv.PaidDate = nil
	}

	if inv.IsCancelled() {
		return
	}

	switch inv.PaymentStatus {
	case PaymentPaid:
		inv.Status = StatusPaid
		return
	case PaymentPartial:
		inv.Status = StatusPartial
	default:
		if isDerivedStatus(inv.Status) {
			inv.Status = inv.baseStatus()
		}
	}

	if inv.DueDate.Before(now) {
		inv.Status = StatusOverdue
	}
}

// IsOverdue reports whether inv is unpaid past its due date as of now.
func IsOverdue(inv *Invoice, now time.Time) bool {
	return !inv.IsCancelled() &&
		inv.PaymentStatus != PaymentPaid &&
		!inv.DueDate.IsZero() &&
		inv.DueDate.Before(now)
}

// isDerivedStatus reports statuses that only DeriveLifecycle assigns.
func isDerivedStatus(s Status) bool {
	return s == StatusPaid || s == StatusPartial || s == StatusOverdue
}

// baseStatus is the status an unpaid invoice falls back to once a derived
// status no longer applies.
func (inv *Invoice) baseStatus() Status {
	if inv.EmailSent {
		return StatusSent
	}
	return StatusDraft
}
