package sales

import (
	"strconv"
	"time"

	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"
	"retail-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type LineRequest struct {
	ItemID   uint `json:"itemId"`
	Quantity int  `json:"quantity"`
}

// CreateSaleRequest: any totals or prices a client sends are ignored.
type CreateSaleRequest struct {
	StoreID      uint          `json:"storeId"`
	CustomerName string        `json:"customerName"`
	Items        []LineRequest `json:"items"`
}

type LineResponse struct {
	ItemID      uint    `json:"itemId"`
	ItemName    string  `json:"itemName"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"priceAtSale"`
	LineTotal   float64 `json:"lineTotal"`
}

type CreatorResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type SaleResponse struct {
	ID           uint             `json:"id"`
	StoreID      uint             `json:"storeId"`
	CustomerName string           `json:"customerName"`
	TotalAmount  float64          `json:"totalAmount"`
	Date         time.Time        `json:"date"`
	Items        []LineResponse   `json:"items"`
	CreatedByID  uint             `json:"createdById"`
	CreatedBy    *CreatorResponse `json:"createdBy,omitempty"`
}

func toResponse(s models.Sale) SaleResponse {
	resp := SaleResponse{
		ID:           s.ID,
		StoreID:      s.StoreID,
		CustomerName: s.CustomerName,
		TotalAmount:  s.TotalAmount,
		Date:         s.Date,
		Items:        make([]LineResponse, 0, len(s.Items)),
		CreatedByID:  s.CreatedByID,
	}
	for _, l := range s.Items {
		resp.Items = append(resp.Items, LineResponse{
			ItemID:      l.ItemID,
			ItemName:    l.ItemName,
			Quantity:    l.Quantity,
			PriceAtSale: l.PriceAtSale,
			LineTotal:   l.LineTotal,
		})
	}
	if s.CreatedBy != nil {
		resp.CreatedBy = &CreatorResponse{ID: s.CreatedBy.ID, Name: s.CreatedBy.Name}
	}
	return resp
}

// POST /api/sales
func CreateSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.StoreID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "storeId is required")
		}

		lines := make([]LineInput, 0, len(body.Items))
		for _, l := range body.Items {
			lines = append(lines, LineInput(l))
		}

		sale, err := svc.CreateSale(c.UserContext(), p, body.StoreID, CreateSaleInput{
			CustomerName: body.CustomerName,
			Items:        lines,
		})
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(*sale))
	}
}

// GET /api/sales?storeId=&customerName=&dateFrom=2024-01-01&dateTo=2024-01-31&minTotal=&maxTotal=&sortBy=date&order=desc&page=1&limit=10
func ListSalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		f := SaleFilter{
			CustomerName: c.Query("customerName"),
			SortBy:       c.Query("sortBy"),
			Order:        c.Query("order"),
		}

		if raw := c.Query("storeId"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || v == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid storeId")
			}
			id := uint(v)
			f.StoreID = &id
		}
		if f.DateFrom, err = parseDate(c.Query("dateFrom"), false); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid dateFrom")
		}
		if f.DateTo, err = parseDate(c.Query("dateTo"), true); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid dateTo")
		}
		if f.MinTotal, err = parseFloat(c.Query("minTotal")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid minTotal")
		}
		if f.MaxTotal, err = parseFloat(c.Query("maxTotal")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid maxTotal")
		}
		if f.Page, err = parseInt(c.Query("page")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid page")
		}
		if f.Limit, err = parseInt(c.Query("limit")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
		}

		list, err := svc.ListSales(c.UserContext(), p, f)
		if err != nil {
			return apperror.ToFiber(err)
		}

		out := make([]SaleResponse, 0, len(list.Sales))
		for _, s := range list.Sales {
			out = append(out, toResponse(s))
		}
		return c.JSON(fiber.Map{
			"sales":      out,
			"total":      list.Total,
			"page":       list.Page,
			"totalPages": list.TotalPages,
		})
	}
}

// GET /api/sales/:id
func GetSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid sale id")
		}

		sale, err := svc.GetSale(c.UserContext(), p, uint(id))
		if err != nil {
			return apperror.ToFiber(err)
		}
		return c.JSON(toResponse(*sale))
	}
}

// parseDate accepts RFC 3339 or a plain date. A plain dateTo covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
