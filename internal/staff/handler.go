package staff

import (
	"strconv"

	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type JoinRequestBody struct {
	StoreID uint `json:"storeId"`
}

// POST /api/staff/join (staff)
func JoinHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var body JoinRequestBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.StoreID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		store, err := svc.Join(c.UserContext(), p, body.StoreID)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(fiber.Map{
			"message": "successfully joined the store as staff",
			"storeId": store.ID,
		})
	}
}

// PUT /api/staff/fire/:staffId?storeId=1 (owner)
func FireHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		staffID, err := c.ParamsInt("staffId")
		if err != nil || staffID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid staff id")
		}
		storeID, err := storeIDQuery(c)
		if err != nil {
			return err
		}

		if err := svc.Fire(c.UserContext(), p, storeID, uint(staffID)); err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "staff member has been fired"})
	}
}

// GET /api/staff?storeId=1 (owner)
func ListStaffHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		storeID, err := storeIDQuery(c)
		if err != nil {
			return err
		}

		members, err := svc.ListStaff(c.UserContext(), p, storeID)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(members)
	}
}

func storeIDQuery(c *fiber.Ctx) (uint, error) {
	raw := c.Query("storeId")
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "storeId is required")
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid storeId")
	}
	return uint(v), nil
}
