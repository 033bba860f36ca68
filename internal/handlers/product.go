package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/images"
	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/mykafka"
	"github.com/Skotchmaster/farmmarket/internal/policy"
	"github.com/Skotchmaster/farmmarket/internal/service/search"
)

// ProductHandler covers the farmer-facing product management surface.
// Mutations mirror into Kafka and the search index on a best effort basis.
type ProductHandler struct {
	DB       *gorm.DB
	Images   *images.Store
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	if err := search.IndexProduct(c.Request().Context(), h.ES, h.Index, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) farmer(c echo.Context) (*models.User, error) {
	actor, err := Actor(c)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.DB.First(&user, actor.UserID).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	if !user.IsFarmer() {
		return nil, echo.NewHTTPError(http.StatusForbidden, "farmers only")
	}
	return &user, nil
}

func (h *ProductHandler) MyProducts(c echo.Context) error {
	farmer, err := h.farmer(c)
	if err != nil {
		return err
	}

	var products []models.Product
	if err := h.DB.Where("farmer_id = ?", farmer.ID).Order("created_at DESC").Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, products)
}

// bindProductForm reads the multipart form shared by create and edit.
func (h *ProductHandler) bindProductForm(c echo.Context, p *models.Product) error {
	name := c.FormValue("name")
	priceStr := c.FormValue("price")
	stockStr := c.FormValue("stock")
	category := c.FormValue("category")
	unit := c.FormValue("unit")

	if name == "" || priceStr == "" || stockStr == "" || category == "" || unit == "" {
		return fail(c, http.StatusBadRequest, "please fill in all required fields")
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price < 0 {
		return fail(c, http.StatusBadRequest, "please enter valid numbers for price and stock")
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil || stock < 0 {
		return fail(c, http.StatusBadRequest, "please enter valid numbers for price and stock")
	}

	p.Name = name
	p.Description = c.FormValue("description")
	p.Price = price
	p.Quantity = uint(stock)
	p.Category = category
	p.Unit = unit
	p.Organic = c.FormValue("organic") == "true" || c.FormValue("organic") == "on"
	p.PickupAvailable = c.FormValue("pickup_available") != "false"
	p.DeliveryAvailable = c.FormValue("delivery_available") == "true"
	if fee, ok := parseFloat(c.FormValue("delivery_fee")); ok && fee >= 0 {
		p.DeliveryFee = fee
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		name, err := h.Images.Save(file)
		if err != nil {
			if errors.Is(err, images.ErrUnsupportedFormat) {
				return fail(c, http.StatusBadRequest, "unsupported image format")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if p.Image != "" {
			if err := h.Images.Remove(p.Image); err != nil {
				c.Logger().Errorf("old image remove error: %v", err)
			}
		}
		p.Image = name
	}
	return nil
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	farmer, err := h.farmer(c)
	if err != nil {
		return err
	}
	if !policy.CanListProducts(policy.Actor{UserID: farmer.ID, Role: farmer.Role}, farmer.IsApproved) {
		return fail(c, http.StatusForbidden, "your account needs to be approved before you can add products")
	}

	product := models.Product{
		FarmerID:  farmer.ID,
		Available: true,
	}
	if err := h.bindProductForm(c, &product); err != nil {
		return err
	}

	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"farmerID":  farmer.ID,
		"name":      product.Name,
	})
	h.index(c, &product)

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	farmer, err := h.farmer(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if !policy.CanEditProduct(policy.Actor{UserID: farmer.ID, Role: farmer.Role}, &product) {
		return fail(c, http.StatusForbidden, "access denied")
	}

	if err := h.bindProductForm(c, &product); err != nil {
		return err
	}
	product.Available = product.Quantity > 0

	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"farmerID":  farmer.ID,
		"name":      product.Name,
	})
	h.index(c, &product)

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	farmer, err := h.farmer(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if !policy.CanEditProduct(policy.Actor{UserID: farmer.ID, Role: farmer.Role}, &product) {
		return fail(c, http.StatusForbidden, "access denied")
	}

	if err := h.DB.Delete(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Images.Remove(product.Image); err != nil {
		c.Logger().Errorf("image remove error: %v", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": product.ID,
		"farmerID":  farmer.ID,
	})
	if h.ES != nil {
		if err := search.DeleteProduct(c.Request().Context(), h.ES, h.Index, product.ID); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, Response{Success: true, Message: "product deleted"})
}

func (h *ProductHandler) ToggleProduct(c echo.Context) error {
	farmer, err := h.farmer(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if !policy.CanEditProduct(policy.Actor{UserID: farmer.ID, Role: farmer.Role}, &product) {
		return fail(c, http.StatusForbidden, "access denied")
	}

	product.Available = !product.Available
	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.index(c, &product)

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"available": product.Available,
	})
}
