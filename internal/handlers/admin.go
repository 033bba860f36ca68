package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/notify"
	"github.com/Skotchmaster/farmmarket/internal/util"
)

// AdminHandler is the back office: user and farmer management, order and
// product oversight, reports. Routes are mounted behind the admin role
// guard.
type AdminHandler struct {
	DB       *gorm.DB
	Notifier *notify.Dispatcher
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	var (
		totalUsers     int64
		totalFarmers   int64
		totalBuyers    int64
		pendingFarmers int64
		totalProducts  int64
		totalOrders    int64
	)
	h.DB.Model(&models.User{}).Count(&totalUsers)
	h.DB.Model(&models.User{}).Where("role = ?", models.RoleFarmer).Count(&totalFarmers)
	h.DB.Model(&models.User{}).Where("role = ?", models.RoleBuyer).Count(&totalBuyers)
	h.DB.Model(&models.User{}).Where("role = ? AND is_approved = ?", models.RoleFarmer, false).Count(&pendingFarmers)
	h.DB.Model(&models.Product{}).Count(&totalProducts)
	h.DB.Model(&models.Order{}).Count(&totalOrders)

	var recentSales float64
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	h.DB.Model(&models.Order{}).
		Where("created_at >= ? AND status IN ?", thirtyDaysAgo,
			[]string{models.OrderStatusCompleted, models.OrderStatusReady}).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&recentSales)

	var recentOrders []models.Order
	if err := h.DB.Order("created_at DESC").Limit(10).Find(&recentOrders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total_users":     totalUsers,
		"total_farmers":   totalFarmers,
		"total_buyers":    totalBuyers,
		"pending_farmers": pendingFarmers,
		"total_products":  totalProducts,
		"total_orders":    totalOrders,
		"recent_sales":    recentSales,
		"recent_orders":   recentOrders,
	})
}

func (h *AdminHandler) ListFarmers(c echo.Context) error {
	var farmers []models.User
	if err := h.DB.Where("role = ?", models.RoleFarmer).Order("created_at DESC").Find(&farmers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, farmers)
}

func (h *AdminHandler) ApproveFarmer(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var farmer models.User
	if err := h.DB.First(&farmer, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if farmer.Role != models.RoleFarmer {
		return fail(c, http.StatusBadRequest, "user is not a farmer")
	}

	if err := h.DB.Model(&farmer).Update("is_approved", true).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Notifier.FarmerApproval(&farmer)

	return c.JSON(http.StatusOK, Response{Success: true, Message: "farmer approved successfully"})
}

// RejectFarmer removes the pending account together with anything it
// already listed.
func (h *AdminHandler) RejectFarmer(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var farmer models.User
	if err := h.DB.First(&farmer, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if farmer.Role != models.RoleFarmer {
		return fail(c, http.StatusBadRequest, "user is not a farmer")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("farmer_id = ?", farmer.ID).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&farmer).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	return c.JSON(http.StatusOK, Response{Success: true, Message: "farmer rejected and removed"})
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, 20)

	q := h.DB.Model(&models.User{})
	if role := c.QueryParam("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var users []models.User
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": map[string]any{"page": page, "size": limit, "total": total},
	})
}

func (h *AdminHandler) setBlocked(c echo.Context, blocked bool) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	if uint(id) == actor.UserID {
		return fail(c, http.StatusBadRequest, "cannot block your own account")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err := h.DB.Model(&user).Update("is_blocked", blocked).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	msg := "user unblocked successfully"
	if blocked {
		msg = "user blocked successfully"
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: msg})
}

func (h *AdminHandler) BlockUser(c echo.Context) error   { return h.setBlocked(c, true) }
func (h *AdminHandler) UnblockUser(c echo.Context) error { return h.setBlocked(c, false) }

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	if uint(id) == actor.UserID {
		return fail(c, http.StatusBadRequest, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if user.Role == models.RoleFarmer {
			if err := tx.Where("farmer_id = ?", user.ID).Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}
		var orders []models.Order
		if err := tx.Where("buyer_id = ? OR farmer_id = ?", user.ID, user.ID).Find(&orders).Error; err != nil {
			return err
		}
		for _, o := range orders {
			if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("buyer_id = ? OR farmer_id = ?", user.ID, user.ID).Delete(&models.Order{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	return c.JSON(http.StatusOK, Response{Success: true, Message: "user deleted successfully"})
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, 20)

	q := h.DB.Model(&models.Order{}).Preload("Items")
	if status := c.QueryParam("status"); status != "" {
		if !models.ValidOrderStatus(status) {
			return fail(c, http.StatusBadRequest, "invalid status")
		}
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{"page": page, "size": limit, "total": total},
	})
}

func (h *AdminHandler) OrderDetail(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *AdminHandler) ListProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, 20)

	q := h.DB.Model(&models.Product{}).
		Joins("JOIN users ON users.id = products.farmer_id")
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("LOWER(products.name) LIKE LOWER(?) OR LOWER(users.username) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var products []models.Product
	if err := q.Order("products.created_at DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": products,
		"meta": map[string]any{"page": page, "size": limit, "total": total},
	})
}

func (h *AdminHandler) ToggleProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	product.Available = !product.Available
	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	msg := "product deactivated"
	if product.Available {
		msg = "product activated"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"available": product.Available,
		"message":   msg,
	})
}

type dailySales struct {
	Date       string  `json:"date"`
	TotalSales float64 `json:"total_sales"`
	OrderCount int     `json:"order_count"`
}

type topProduct struct {
	Name         string  `json:"name"`
	TotalSold    uint    `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

type topFarmer struct {
	Username     string  `json:"username"`
	OrderCount   int64   `json:"order_count"`
	TotalRevenue float64 `json:"total_revenue"`
}

// Reports aggregates the last 30 days of sales plus all-time product and
// farmer rankings. The daily grouping happens in Go to stay portable
// between the postgres deployment and the sqlite test database.
func (h *AdminHandler) Reports(c echo.Context) error {
	since := time.Now().AddDate(0, 0, -30)
	soldStatuses := []string{models.OrderStatusCompleted, models.OrderStatusReady}

	var recent []models.Order
	if err := h.DB.
		Where("created_at >= ? AND status IN ?", since, soldStatuses).
		Find(&recent).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	byDay := make(map[string]*dailySales)
	for _, o := range recent {
		day := o.CreatedAt.Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = &dailySales{Date: day}
		}
		byDay[day].TotalSales += o.TotalPrice
		byDay[day].OrderCount++
	}
	sales := make([]dailySales, 0, len(byDay))
	for _, d := range byDay {
		sales = append(sales, *d)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].Date > sales[j].Date })

	var topProducts []topProduct
	if err := h.DB.Model(&models.OrderItem{}).
		Joins("JOIN products ON products.id = order_items.product_id").
		Select("products.name AS name, SUM(order_items.quantity) AS total_sold, SUM(order_items.quantity * order_items.price) AS total_revenue").
		Group("products.id, products.name").
		Order("total_sold DESC").
		Limit(10).
		Scan(&topProducts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var topFarmers []topFarmer
	if err := h.DB.Model(&models.Order{}).
		Joins("JOIN users ON users.id = orders.farmer_id").
		Select("users.username AS username, COUNT(orders.id) AS order_count, SUM(orders.total_price) AS total_revenue").
		Group("users.id, users.username").
		Order("total_revenue DESC").
		Limit(10).
		Scan(&topFarmers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"sales_data":   sales,
		"top_products": topProducts,
		"top_farmers":  topFarmers,
	})
}
