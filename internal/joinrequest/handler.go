package joinrequest

import (
	"strconv"
	"strings"
	"time"

	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"
	"retail-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SendRequestBody struct {
	StoreID uint `json:"storeId"`
}

type SetStatusBody struct {
	Status string `json:"status"`
}

type StoreRef struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type StaffRef struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type JoinRequestResponse struct {
	ID        uint                     `json:"id"`
	StaffID   uint                     `json:"staffId"`
	StoreID   uint                     `json:"storeId"`
	Status    models.JoinRequestStatus `json:"status"`
	Store     *StoreRef                `json:"store,omitempty"`
	Staff     *StaffRef                `json:"staff,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

func toResponse(r models.JoinRequest) JoinRequestResponse {
	resp := JoinRequestResponse{
		ID:        r.ID,
		StaffID:   r.StaffID,
		StoreID:   r.StoreID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Store != nil {
		resp.Store = &StoreRef{ID: r.Store.ID, Name: r.Store.Name, Address: r.Store.Address}
	}
	if r.Staff != nil {
		resp.Staff = &StaffRef{ID: r.Staff.ID, Name: r.Staff.Name, Email: r.Staff.Email}
	}
	return resp
}

func toResponses(reqs []models.JoinRequest) []JoinRequestResponse {
	out := make([]JoinRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toResponse(r))
	}
	return out
}

// POST /api/join-requests (staff)
func SendRequestHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var body SendRequestBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.StoreID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		req, err := svc.SendRequest(c.UserContext(), p, body.StoreID)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "request sent successfully",
			"request": toResponse(*req),
		})
	}
}

// GET /api/join-requests/my-requests (staff)
func ListMineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		reqs, err := svc.ListMine(c.UserContext(), p)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(toResponses(reqs))
	}
}

// GET /api/join-requests/pending?storeId=1 (owner)
func ListPendingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var storeID *uint
		if raw := c.Query("storeId"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || v == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid storeId")
			}
			id := uint(v)
			storeID = &id
		}

		reqs, err := svc.ListPending(c.UserContext(), p, storeID)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(toResponses(reqs))
	}
}

// PUT /api/join-requests/:id/status (owner)
func SetStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
		}

		var body SetStatusBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		status := models.JoinRequestStatus(strings.ToLower(strings.TrimSpace(body.Status)))
		req, err := svc.SetStatus(c.UserContext(), p, uint(id), status)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(fiber.Map{
			"message": "request " + string(req.Status),
			"request": toResponse(*req),
		})
	}
}
