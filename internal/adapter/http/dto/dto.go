package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"tuition-ledger/config"
	"tuition-ledger/internal/core/domain"
)

// RegisterRequest is the request body for representative registration.
type RegisterRequest struct {
	Identifier    string `json:"identifier" binding:"required,max=32,no_control"`
	Secret        string `json:"secret" binding:"required,min=4,max=128" sanitize:"trim"`
	DisplayName   string `json:"display_name" binding:"required,max=100,no_control"`
	EnrollmentRef string `json:"enrollment_ref" binding:"max=32,no_control"`
}

// LoginRequest is the request body for login. Empty values are not a
// binding error: they simply never match.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"max=32"`
	Secret     string `json:"secret" binding:"max=128"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token         string `json:"token"`
	Expiry        int64  `json:"expiry"` // Unix timestamp
	Identity      string `json:"identity"`
	DisplayName   string `json:"display_name"`
	EnrollmentRef string `json:"enrollment_ref,omitempty"`
	Admin         bool   `json:"admin,omitempty"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
}

// FlexString accepts a JSON string or number and keeps its literal text.
// Forms post amounts either way.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a number or a string, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// PaymentRequest is the request body for a payment submission. The
// representative is always the session identity.
type PaymentRequest struct {
	EnrollmentRef      string     `json:"enrollment_ref" binding:"max=32,no_control"`
	PaymentDate        string     `json:"payment_date" binding:"max=32"`
	Level              string     `json:"level" binding:"max=64"`
	Method             string     `json:"method" binding:"max=64"`
	Mode               string     `json:"mode" binding:"max=32"`
	Reference          string     `json:"reference" binding:"max=100,no_control"`
	Amount             FlexString `json:"amount" binding:"max=32"`
	OutstandingBalance FlexString `json:"outstanding_balance" binding:"max=32"`
	Observations       string     `json:"observations" binding:"max=500,no_control"`
	// Status is accepted for compatibility with older clients and ignored:
	// new records are always Pending.
	Status string `json:"status,omitempty"`
}

// ToSubmission converts the request into a ledger submission for identity.
func (r *PaymentRequest) ToSubmission(identity, idempotencyToken string) domain.Submission {
	return domain.Submission{
		RepresentativeID:   identity,
		EnrollmentRef:      r.EnrollmentRef,
		PaymentDate:        r.PaymentDate,
		Level:              r.Level,
		Method:             r.Method,
		Mode:               r.Mode,
		Reference:          r.Reference,
		Amount:             string(r.Amount),
		OutstandingBalance: string(r.OutstandingBalance),
		Observations:       r.Observations,
		IdempotencyToken:   idempotencyToken,
	}
}

// PaymentResponse is the wire form of a payment record.
type PaymentResponse struct {
	ID                 string `json:"id"`
	SubmittedAt        string `json:"submitted_at"`
	PaymentDate        string `json:"payment_date"`
	RepresentativeID   string `json:"representative_id"`
	EnrollmentRef      string `json:"enrollment_ref"`
	Level              string `json:"level"`
	Method             string `json:"method"`
	Mode               string `json:"mode"`
	Reference          string `json:"reference"`
	Amount             string `json:"amount"`
	OutstandingBalance string `json:"outstanding_balance"`
	Observations       string `json:"observations,omitempty"`
	Status             string `json:"status"`
}

// NewPaymentResponse renders rec with fixed two-decimal amounts.
func NewPaymentResponse(rec domain.PaymentRecord) PaymentResponse {
	fields := rec.Fields()
	return PaymentResponse{
		ID:                 rec.ID,
		SubmittedAt:        fields[domain.FieldSubmittedAt],
		PaymentDate:        fields[domain.FieldPaymentDate],
		RepresentativeID:   rec.RepresentativeID,
		EnrollmentRef:      rec.EnrollmentRef,
		Level:              rec.Level,
		Method:             rec.Method,
		Mode:               string(rec.Mode),
		Reference:          rec.Reference,
		Amount:             fields[domain.FieldAmount],
		OutstandingBalance: fields[domain.FieldOutstandingBalance],
		Observations:       rec.Observations,
		Status:             string(rec.Status),
	}
}

// PaymentListResponse wraps a list of records, newest first.
type PaymentListResponse struct {
	Items []PaymentResponse `json:"items"`
	Total int               `json:"total"`
}

// NewPaymentListResponse renders records in the order given.
func NewPaymentListResponse(records []domain.PaymentRecord) PaymentListResponse {
	items := make([]PaymentResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, NewPaymentResponse(rec))
	}
	return PaymentListResponse{Items: items, Total: len(items)}
}

// StatementResponse is the wire form of a representative's statement.
type StatementResponse struct {
	RepresentativeID   string  `json:"representative_id"`
	Records            int     `json:"records"`
	Pending            int     `json:"pending"`
	Validated          int     `json:"validated"`
	Rejected           int     `json:"rejected"`
	TotalReported      string  `json:"total_reported"`
	TotalValidated     string  `json:"total_validated"`
	OutstandingBalance string  `json:"outstanding_balance"`
	LastSubmittedAt    *string `json:"last_submitted_at,omitempty"`
	LastRecordID       string  `json:"last_record_id,omitempty"`
}

// NewStatementResponse renders st.
func NewStatementResponse(st *domain.Statement) StatementResponse {
	resp := StatementResponse{
		RepresentativeID:   st.RepresentativeID,
		Records:            st.Records,
		Pending:            st.Pending,
		Validated:          st.Validated,
		Rejected:           st.Rejected,
		TotalReported:      domain.FormatAmount(st.TotalReported),
		TotalValidated:     domain.FormatAmount(st.TotalValidated),
		OutstandingBalance: domain.FormatAmount(st.OutstandingBalance),
		LastRecordID:       st.LastRecordID,
	}
	if st.LastSubmittedAt != nil {
		at := st.LastSubmittedAt.UTC().Format(time.RFC3339)
		resp.LastSubmittedAt = &at
	}
	return resp
}

// CatalogResponse lists the values a payment form offers.
type CatalogResponse struct {
	Levels   []string               `json:"levels"`
	Methods  []string               `json:"methods"`
	Modes    []string               `json:"modes"`
	Accounts []config.SchoolAccount `json:"accounts"`
}

// NewCatalogResponse builds the catalog from configuration.
func NewCatalogResponse(ledger config.LedgerConfig, catalog config.CatalogConfig) CatalogResponse {
	accounts := catalog.Accounts
	if accounts == nil {
		accounts = []config.SchoolAccount{}
	}
	return CatalogResponse{
		Levels:   ledger.Levels,
		Methods:  ledger.Methods,
		Modes:    []string{string(domain.ModeFullPayment), string(domain.ModePartialPayment)},
		Accounts: accounts,
	}
}
