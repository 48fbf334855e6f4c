package store

import (
	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"
	"retail-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateStoreRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type OwnerRef struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type StoreResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	OwnerID   uint      `json:"ownerId,omitempty"`
	Owner     *OwnerRef `json:"owner,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty"`
}

func toResponse(s models.Store) StoreResponse {
	resp := StoreResponse{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Address,
		OwnerID:   s.OwnerID,
		CreatedAt: s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if s.Owner != nil {
		resp.Owner = &OwnerRef{ID: s.Owner.ID, Name: s.Owner.Name, Email: s.Owner.Email}
	}
	return resp
}

// POST /api/stores (owner)
func CreateStoreHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var body CreateStoreRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		store, err := svc.Create(c.UserContext(), p, body.Name, body.Address)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(*store))
	}
}

// GET /api/stores (staff)
func ListStoresHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		stores, err := svc.ListAll(c.UserContext(), p)
		if err != nil {
			return apperror.ToFiber(err)
		}

		res := make([]StoreResponse, 0, len(stores))
		for _, s := range stores {
			res = append(res, toResponse(s))
		}
		return c.JSON(res)
	}
}

// GET /api/stores/my-stores (owner)
func MyStoresHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		stores, err := svc.MyStores(c.UserContext(), p)
		if err != nil {
			return apperror.ToFiber(err)
		}

		res := make([]StoreResponse, 0, len(stores))
		for _, s := range stores {
			res = append(res, toResponse(s))
		}
		return c.JSON(res)
	}
}

// GET /api/stores/:id
func GetStoreHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid store id")
		}

		store, err := svc.Get(c.UserContext(), uint(id))
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(fiber.Map{
			"id":      store.ID,
			"name":    store.Name,
			"address": store.Address,
		})
	}
}
