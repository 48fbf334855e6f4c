package inventory

import (
	"strconv"

	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type CreateItemRequest struct {
	StoreID  uint    `json:"storeId"`
	Name     string  `json:"name"`
	SKU      *string `json:"sku"` // optional
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

type UpdateItemRequest struct {
	Name     *string  `json:"name"`
	SKU      *string  `json:"sku"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price"`
	Stock    *int     `json:"stock"`
}

type ImportRowRequest struct {
	SKU      string   `json:"sku"`
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price"`
	Stock    int      `json:"stock"`
}

type ImportRequest struct {
	StoreID uint               `json:"storeId"`
	Rows    []ImportRowRequest `json:"rows"`
}

// POST /api/inventory (owner)
func CreateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var body CreateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.StoreID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		item, err := svc.CreateItem(c.UserContext(), p, body.StoreID, CreateItemInput{
			Name:     body.Name,
			SKU:      body.SKU,
			Category: body.Category,
			Price:    body.Price,
			Stock:    body.Stock,
		})
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// GET /api/inventory?storeId=1&search=&category=&minStock=&maxStock=&sortBy=createdAt&order=desc&page=1&limit=10
func ListItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		storeID, err := queryUint(c, "storeId")
		if err != nil || storeID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		f := ItemFilter{
			Search:   c.Query("search"),
			Category: c.Query("category"),
			SortBy:   c.Query("sortBy"),
			Order:    c.Query("order"),
		}
		if f.MinStock, err = queryIntPtr(c, "minStock"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "minStock must be an integer")
		}
		if f.MaxStock, err = queryIntPtr(c, "maxStock"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "maxStock must be an integer")
		}
		if f.Page, err = queryInt(c, "page"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "page must be an integer")
		}
		if f.Limit, err = queryInt(c, "limit"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
		}

		list, err := svc.ListItems(c.UserContext(), p, storeID, f)
		if err != nil {
			return apperror.ToFiber(err)
		}

		return c.JSON(fiber.Map{
			"items":      list.Items,
			"total":      list.Total,
			"page":       list.Page,
			"totalPages": list.TotalPages,
		})
	}
}

// GET /api/inventory/:id
func GetItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
		}

		item, err := svc.GetItem(c.UserContext(), p, uint(id))
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(item)
	}
}

// PUT /api/inventory/:id (owner)
func UpdateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
		}

		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		item, err := svc.UpdateItem(c.UserContext(), p, uint(id), ItemPatch{
			Name:     body.Name,
			SKU:      body.SKU,
			Category: body.Category,
			Price:    body.Price,
			Stock:    body.Stock,
		})
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(item)
	}
}

// DELETE /api/inventory/:id (owner)
func DeleteItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
		}

		if err := svc.DeleteItem(c.UserContext(), p, uint(id)); err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "item deleted"})
	}
}

// POST /api/inventory/import (owner)
func ImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var body ImportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.StoreID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		rows := make([]ImportRow, 0, len(body.Rows))
		for _, r := range body.Rows {
			rows = append(rows, ImportRow(r))
		}

		outcomes, err := svc.MergeBySku(c.UserContext(), p, body.StoreID, rows)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var created, merged, failed int
		for _, o := range outcomes {
			switch o.Action {
			case ImportCreated:
				created++
			case ImportMerged:
				merged++
			case ImportFailed:
				failed++
			}
		}
		return c.JSON(fiber.Map{
			"results": outcomes,
			"created": created,
			"merged":  merged,
			"failed":  failed,
		})
	}
}

func queryUint(c *fiber.Ctx, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	return uint(v), err
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func queryIntPtr(c *fiber.Ctx, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
