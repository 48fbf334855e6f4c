package audit

import (
	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          uint   `json:"id"`
	CreatedAt   string `json:"created_at"`
	StoreID     uint   `json:"store_id"`
	AccountID   uint   `json:"account_id"`
	AccountName string `json:"account_name"`
	EntityType  string `json:"entity_type"`
	EntityID    uint   `json:"entity_id"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// GET /api/audit-logs?storeId=1&entityType=inventory_item
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		storeID := c.QueryInt("storeId")
		if storeID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		logs, err := svc.List(c.UserContext(), p, uint(storeID), c.Query("entityType"))
		if err != nil {
			return apperror.ToFiber(err)
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				StoreID:     l.StoreID,
				AccountID:   l.AccountID,
				AccountName: l.AccountName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      string(l.Action),
				Description: l.Description,
			})
		}
		return c.JSON(resp)
	}
}
