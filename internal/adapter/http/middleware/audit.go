package middleware

import (
	"net/http"
	"time"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful writes.
// It maps matched routes to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		action := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:         uuid.New(),
			At:         time.Now().UTC(),
			Action:     action,
			Identity:   c.GetString(CtxIdentity),
			Resource:   c.Request.URL.Path,
			IPAddress:  c.ClientIP(),
			HTTPStatus: status,
		})
	}
}

func mapRouteToAction(route, method string) domain.AuditAction {
	if method != http.MethodPost {
		return ""
	}
	switch route {
	case "/api/v1/auth/register":
		return domain.AuditActionRegister
	case "/api/v1/auth/login":
		return domain.AuditActionLogin
	case "/api/v1/payments":
		return domain.AuditActionSubmitPayment
	}
	return ""
}
