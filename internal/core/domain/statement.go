package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statement summarizes one representative's records.
type Statement struct {
	RepresentativeID string          `json:"representative_id"`
	Records          int             `json:"records"`
	Pending          int             `json:"pending"`
	Validated        int             `json:"validated"`
	Rejected         int             `json:"rejected"`
	TotalReported    decimal.Decimal `json:"total_reported"`
	TotalValidated   decimal.Decimal `json:"total_validated"`
	// OutstandingBalance is what the most recent record declared. It is the
	// submitter's own figure, not something the ledger computes.
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	LastSubmittedAt    *time.Time      `json:"last_submitted_at,omitempty"`
	LastRecordID       string          `json:"last_record_id,omitempty"`
}

// BuildStatement folds records, newest first, into a statement.
// Rejected records do not count towards the reported total.
func BuildStatement(representativeID string, newestFirst []PaymentRecord) Statement {
	st := Statement{
		RepresentativeID:   representativeID,
		TotalReported:      decimal.Zero,
		TotalValidated:     decimal.Zero,
		OutstandingBalance: decimal.Zero,
	}
	for i := range newestFirst {
		rec := &newestFirst[i]
		st.Records++
		switch rec.Status {
		case StatusValidated:
			st.Validated++
			st.TotalValidated = st.TotalValidated.Add(rec.Amount)
			st.TotalReported = st.TotalReported.Add(rec.Amount)
		case StatusRejected:
			st.Rejected++
		default:
			st.Pending++
			st.TotalReported = st.TotalReported.Add(rec.Amount)
		}
	}
	if len(newestFirst) > 0 {
		latest := newestFirst[0]
		if latest.IsPartial() {
			st.OutstandingBalance = latest.OutstandingBalance
		}
		st.LastRecordID = latest.ID
		if !latest.SubmittedAt.IsZero() {
			at := latest.SubmittedAt
			st.LastSubmittedAt = &at
		}
	}
	return st
}
