package middleware

import (
	"net/http"
	"strings"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful mutating API calls after the response is
// written. Read-only and failed requests are skipped; service-level audit
// entries carry the detailed outcome.
func AuditLog(audit ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}

		auth := AuthFromGin(c)
		if auth == nil {
			return
		}

		action, resource := mapPathToAction(c.Request.Method, c.Request.URL.Path)
		if action == "" {
			return
		}
		audit.Log(c.Request.Context(), auth.UserID, action, resource, "", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(CtxRequestID),
		})
	}
}

func mapPathToAction(method, path string) (domain.AuditAction, string) {
	switch {
	case strings.HasSuffix(path, "/wallet") && method == http.MethodPost:
		return domain.AuditActionWalletCreated, "wallet"
	case strings.HasSuffix(path, "/deposits"):
		return domain.AuditActionDepositInitiated, "transaction"
	case strings.HasSuffix(path, "/withdrawals"):
		return domain.AuditActionWithdrawalInitiated, "transaction"
	case strings.HasSuffix(path, "/assistant/query"):
		return domain.AuditActionAssistantQuery, "assistant"
	case strings.HasSuffix(path, "/cancel") && strings.Contains(path, "/jobs/"):
		return domain.AuditActionJobCancelled, "job"
	default:
		return "", ""
	}
}
