package handler

import (
	"strings"

	"tuition-ledger/internal/adapter/http/dto"
	"tuition-ledger/internal/adapter/http/middleware"
	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/pkg/apperror"
	"tuition-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed marks a response answered from an earlier submission.
	HeaderReplayed = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
)

// PaymentHandler handles payment ledger endpoints.
type PaymentHandler struct {
	ledger   ports.PaymentLedger
	querySvc ports.LedgerQueryService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ledger ports.PaymentLedger, querySvc ports.LedgerQueryService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger, querySvc: querySvc}
}

// Submit handles POST /api/v1/payments.
func (h *PaymentHandler) Submit(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	token := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if len(token) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key is too long"))
		return
	}

	result, err := h.ledger.Append(c.Request.Context(), req.ToSubmission(session.Identity, token))
	if err != nil {
		response.Error(c, err)
		return
	}

	var warnings []string
	if result.Drift != nil {
		warnings = append(warnings, result.Drift.String())
	}
	if result.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	response.Created(c, dto.NewPaymentResponse(result.Record), warnings...)
}

// ListMine handles GET /api/v1/payments/mine.
func (h *PaymentHandler) ListMine(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	records, err := h.querySvc.ListForRepresentative(c.Request.Context(), session.Identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPaymentListResponse(records))
}

// StatementMine handles GET /api/v1/payments/mine/statement.
func (h *PaymentHandler) StatementMine(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	st, err := h.querySvc.Statement(c.Request.Context(), session.Identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewStatementResponse(st))
}

// ListAll handles GET /api/v1/payments. Staff may narrow the list with
// ?representative=.
func (h *PaymentHandler) ListAll(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		records []domain.PaymentRecord
		err     error
	)
	if rep := strings.TrimSpace(c.Query("representative")); rep != "" {
		records, err = h.querySvc.ListForRepresentative(ctx, rep)
	} else {
		records, err = h.querySvc.ListAll(ctx)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPaymentListResponse(records))
}

// Catalog handles GET /api/v1/catalog.
func Catalog(catalog dto.CatalogResponse) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.OK(c, catalog)
	}
}
