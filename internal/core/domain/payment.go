package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mode distinguishes a full settlement from a partial payment.
type Mode string

const (
	ModeFullPayment    Mode = "Pago Total"
	ModePartialPayment Mode = "Abono"
)

// ParseMode accepts the stored spellings and their English names.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pago total", "total", "full", "fullpayment", "full_payment":
		return ModeFullPayment, nil
	case "abono", "partial", "partialpayment", "partial_payment":
		return ModePartialPayment, nil
	}
	return "", fmt.Errorf("unknown payment mode %q", raw)
}

// Status is the review state of a payment record. New records are always
// Pending; Validated and Rejected are set by staff outside this service.
type Status string

const (
	StatusPending   Status = "Pendiente"
	StatusValidated Status = "Validado"
	StatusRejected  Status = "Rechazado"
)

// ParseStatus reads a stored status. Unrecognized values read as Pending so
// an edited cell never promotes a record.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "validado", "validated", "aprobado", "approved":
		return StatusValidated
	case "rechazado", "rejected":
		return StatusRejected
	}
	return StatusPending
}

// IsTerminal returns true if the record has been reviewed.
func (s Status) IsTerminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// Stored field names of a payment record.
const (
	FieldID                 = "id"
	FieldSubmittedAt        = "submittedAt"
	FieldPaymentDate        = "paymentDate"
	FieldRepresentativeID   = "representativeId"
	FieldEnrollmentRef      = "enrollmentRef"
	FieldLevel              = "level"
	FieldMethod             = "method"
	FieldReference          = "reference"
	FieldAmount             = "amount"
	FieldObservations       = "observations"
	FieldStatus             = "status"
	FieldMode               = "mode"
	FieldOutstandingBalance = "outstandingBalance"
)

// PaymentHeader is the column order used when a payments collection is
// created from scratch.
var PaymentHeader = []string{
	FieldID,
	FieldSubmittedAt,
	FieldPaymentDate,
	FieldRepresentativeID,
	FieldEnrollmentRef,
	FieldLevel,
	FieldMethod,
	FieldReference,
	FieldAmount,
	FieldObservations,
	FieldStatus,
	FieldMode,
	FieldOutstandingBalance,
}

// PaymentRequiredColumns must exist for a payments collection to be usable.
// Any other missing column only produces a drift warning.
var PaymentRequiredColumns = []string{FieldID, FieldRepresentativeID, FieldAmount}

// PaymentFieldAliases maps legacy column titles to field names.
var PaymentFieldAliases = map[string]string{
	"timestamp":            FieldSubmittedAt,
	"cedulaRepresentative": FieldRepresentativeID,
	"matricula":            FieldEnrollmentRef,
	"type":                 FieldMode,
	"pendingBalance":       FieldOutstandingBalance,
}

// PaymentRecord is one reported payment as persisted in the ledger.
// Records are never updated or deleted by this service.
type PaymentRecord struct {
	ID                 string          `json:"id"`
	SubmittedAt        time.Time       `json:"submitted_at"`
	PaymentDate        time.Time       `json:"payment_date"`
	RepresentativeID   string          `json:"representative_id"`
	EnrollmentRef      string          `json:"enrollment_ref"`
	Level              string          `json:"level"`
	Method             string          `json:"method"`
	Mode               Mode            `json:"mode"`
	Reference          string          `json:"reference"`
	Amount             decimal.Decimal `json:"amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Observations       string          `json:"observations"`
	Status             Status          `json:"status"`
}

// IsPartial returns true if the record leaves a balance outstanding.
func (p *PaymentRecord) IsPartial() bool {
	return p.Mode == ModePartialPayment
}

// Fields renders the record as stored cell values keyed by field name.
func (p *PaymentRecord) Fields() map[string]string {
	submitted := ""
	if !p.SubmittedAt.IsZero() {
		submitted = p.SubmittedAt.UTC().Format(time.RFC3339Nano)
	}
	outstanding := decimal.Zero
	if p.IsPartial() {
		outstanding = p.OutstandingBalance
	}
	return map[string]string{
		FieldID:                 p.ID,
		FieldSubmittedAt:        submitted,
		FieldPaymentDate:        FormatCalendarDate(p.PaymentDate),
		FieldRepresentativeID:   p.RepresentativeID,
		FieldEnrollmentRef:      p.EnrollmentRef,
		FieldLevel:              p.Level,
		FieldMethod:             p.Method,
		FieldReference:          p.Reference,
		FieldAmount:             FormatAmount(p.Amount),
		FieldObservations:       p.Observations,
		FieldStatus:             string(p.Status),
		FieldMode:               string(p.Mode),
		FieldOutstandingBalance: FormatAmount(outstanding),
	}
}

// DecodePaymentRecord builds a record from stored cell values. Cells that
// cannot be parsed leave the zero value in place and are reported in the
// returned error; the record is usable either way.
func DecodePaymentRecord(fields map[string]string) (PaymentRecord, error) {
	get := func(name string) string { return strings.TrimSpace(fields[name]) }

	rec := PaymentRecord{
		ID:               get(FieldID),
		RepresentativeID: get(FieldRepresentativeID),
		EnrollmentRef:    get(FieldEnrollmentRef),
		Level:            get(FieldLevel),
		Method:           get(FieldMethod),
		Reference:        get(FieldReference),
		Observations:     get(FieldObservations),
		Status:           ParseStatus(get(FieldStatus)),
		Mode:             ModeFullPayment,
	}

	var errs []error
	if raw := get(FieldMode); raw != "" {
		if m, err := ParseMode(raw); err == nil {
			rec.Mode = m
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", FieldMode, err))
		}
	}
	if raw := get(FieldSubmittedAt); raw != "" {
		if t, err := ParseTimestamp(raw); err == nil {
			rec.SubmittedAt = t
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", FieldSubmittedAt, err))
		}
	}
	if raw := get(FieldPaymentDate); raw != "" {
		if t, err := ParseCalendarDate(raw); err == nil {
			rec.PaymentDate = t
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", FieldPaymentDate, err))
		}
	}
	for _, f := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{FieldAmount, &rec.Amount},
		{FieldOutstandingBalance, &rec.OutstandingBalance},
	} {
		name, dst := f.name, f.dst
		raw := get(name)
		if raw == "" {
			continue
		}
		d, err := ParseAmount(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*dst = d
	}
	if !rec.IsPartial() {
		rec.OutstandingBalance = decimal.Zero
	}

	return rec, errors.Join(errs...)
}

// Submission is the caller-supplied part of a new payment record. Identity,
// timestamp and status are assigned by the ledger.
type Submission struct {
	RepresentativeID   string
	EnrollmentRef      string
	PaymentDate        string
	Level              string
	Method             string
	Mode               string
	Reference          string
	Amount             string
	OutstandingBalance string
	Observations       string
	// IdempotencyToken deduplicates resubmissions of the same form.
	IdempotencyToken string
}

// BuildSubmissionKey scopes an idempotency token to its representative.
func BuildSubmissionKey(representativeID, token string) string {
	return "submission:" + NormalizeIdentity(representativeID) + ":" + strings.TrimSpace(token)
}
