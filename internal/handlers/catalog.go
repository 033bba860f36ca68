package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/util"
)

// CatalogHandler serves the public product browse surface: only available
// products of approved farmers are ever returned.
type CatalogHandler struct {
	DB *gorm.DB
}

func (h *CatalogHandler) visible() *gorm.DB {
	return h.DB.Model(&models.Product{}).
		Joins("JOIN users ON users.id = products.farmer_id").
		Where("products.available = ? AND users.is_approved = ? AND users.role = ?",
			true, true, models.RoleFarmer)
}

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.visible()

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		q = q.Where(
			"LOWER(products.name) LIKE LOWER(?) OR LOWER(products.description) LIKE LOWER(?) OR LOWER(users.location) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}
	if category := c.QueryParam("category"); category != "" {
		q = q.Where("products.category = ?", category)
	}
	if minPrice, ok := parseFloat(c.QueryParam("min_price")); ok {
		q = q.Where("products.price >= ?", minPrice)
	}
	if maxPrice, ok := parseFloat(c.QueryParam("max_price")); ok {
		q = q.Where("products.price <= ?", maxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := q.Order("products.created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHandler) ProductDetail(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var farmer models.User
	if err := h.DB.First(&farmer, product.FarmerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if !farmer.IsApproved || farmer.Role != models.RoleFarmer {
		return echo.NewHTTPError(http.StatusNotFound, "this product is not available")
	}

	var related []models.Product
	if err := h.DB.
		Where("farmer_id = ? AND id <> ? AND available = ?", product.FarmerID, product.ID, true).
		Limit(4).Find(&related).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"product": product,
		"farmer": map[string]any{
			"id":       farmer.ID,
			"username": farmer.Username,
			"location": farmer.Location,
		},
		"related": related,
	})
}

// Featured returns the landing page payload: a handful of products plus the
// distinct category list for the filter bar.
func (h *CatalogHandler) Featured(c echo.Context) error {
	var featured []models.Product
	if err := h.visible().Limit(8).Find(&featured).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	categories, err := h.categories()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"featured":   featured,
		"categories": categories,
	})
}

func (h *CatalogHandler) Categories(c echo.Context) error {
	categories, err := h.categories()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"categories": categories})
}

func (h *CatalogHandler) categories() ([]string, error) {
	var categories []string
	err := h.DB.Model(&models.Product{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}
