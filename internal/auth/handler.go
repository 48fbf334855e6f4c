package auth

import (
	"strings"

	"retail-backend/internal/apperror"
	"retail-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
	StoreName       string `json:"storeName"` // owners only
	Address         string `json:"address"`   // owners only
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StoreSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type AccountResponse struct {
	ID      uint          `json:"id"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Role    models.Role   `json:"role"`
	StoreID *uint         `json:"storeId"`
	Store   *StoreSummary `json:"store,omitempty"`
}

func toAccountResponse(acc *models.Account, store *models.Store) AccountResponse {
	resp := AccountResponse{
		ID:      acc.ID,
		Name:    acc.Name,
		Email:   acc.Email,
		Phone:   acc.Phone,
		Role:    acc.Role,
		StoreID: acc.StoreID,
	}
	if store != nil {
		resp.Store = &StoreSummary{ID: store.ID, Name: store.Name, Address: store.Address}
	}
	return resp
}

// roleDetails turns the role field into its registration variant. "admin" is the old name for owner.
func roleDetails(body RegisterRequest) (RoleDetails, error) {
	switch strings.ToLower(strings.TrimSpace(body.Role)) {
	case string(models.RoleOwner), "admin":
		return OwnerRegistration{StoreName: body.StoreName, Address: body.Address}, nil
	case string(models.RoleStaff):
		return StaffRegistration{}, nil
	default:
		return nil, apperror.InvalidArgument("role must be either owner or staff")
	}
}

// POST /api/auth/register
func RegisterHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		details, err := roleDetails(body)
		if err != nil {
			return apperror.ToFiber(err)
		}

		acc, store, err := svc.Register(c.UserContext(), Registration{
			Name:            body.Name,
			Email:           body.Email,
			Phone:           body.Phone,
			Password:        body.Password,
			ConfirmPassword: body.ConfirmPassword,
			Details:         details,
		})
		if err != nil {
			return apperror.ToFiber(err)
		}

		token, err := svc.IssueToken(acc)
		if err != nil {
			return apperror.ToFiber(err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token":   token,
			"account": toAccountResponse(acc, nil),
			"store":   storeSummary(store),
		})
	}
}

func storeSummary(store *models.Store) *StoreSummary {
	if store == nil {
		return nil
	}
	return &StoreSummary{ID: store.ID, Name: store.Name, Address: store.Address}
}

// POST /api/auth/login
func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		token, acc, err := svc.Login(c.UserContext(), body.Email, body.Password)
		if err != nil {
			return apperror.ToFiber(err)
		}

		return c.JSON(fiber.Map{
			"token":   token,
			"account": toAccountResponse(acc, nil),
		})
	}
}

// GET /api/auth/me
func MeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		acc, store, err := svc.Me(c.UserContext(), p.AccountID)
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(toAccountResponse(acc, store))
	}
}
