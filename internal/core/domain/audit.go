package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionRegister      AuditAction = "REGISTER"
	AuditActionSubmitPayment AuditAction = "SUBMIT_PAYMENT"
)

// Stored field names of an audit entry.
const (
	FieldAuditAt        = "at"
	FieldAuditAction    = "action"
	FieldAuditIdentity  = "identity"
	FieldAuditResource  = "resource"
	FieldAuditIPAddress = "ip"
	FieldAuditStatus    = "httpStatus"
)

// AuditHeader is the column order of the audit collection.
var AuditHeader = []string{
	FieldID, FieldAuditAt, FieldAuditAction, FieldAuditIdentity,
	FieldAuditResource, FieldAuditIPAddress, FieldAuditStatus,
}

// AuditLog records a single state-changing request.
type AuditLog struct {
	ID         uuid.UUID   `json:"id"`
	At         time.Time   `json:"at"`
	Action     AuditAction `json:"action"`
	Identity   string      `json:"identity,omitempty"`
	Resource   string      `json:"resource"`
	IPAddress  string      `json:"ip_address"`
	HTTPStatus int         `json:"http_status"`
}
