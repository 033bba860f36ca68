package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/farmmarket/internal/models"
)

func (env *testEnv) doForm(method, path string, fields map[string]string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(env.T, w.WriteField(k, v))
	}
	require.NoError(env.T, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func productForm() map[string]string {
	return map[string]string{
		"name":     "tomatoes",
		"price":    "5.00",
		"stock":    "10",
		"category": "vegetables",
		"unit":     "kg",
	}
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)

	fields := productForm()
	fields["organic"] = "true"
	fields["delivery_available"] = "true"
	fields["delivery_fee"] = "2.50"

	rec, c := env.doForm(http.MethodPost, "/api/v1/farmer/products", fields)
	env.as(c, farmer)
	require.NoError(t, env.Product.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "tomatoes", p.Name)
	require.Equal(t, 5.00, p.Price)
	require.Equal(t, uint(10), p.Quantity)
	require.True(t, p.Organic)
	require.True(t, p.DeliveryAvailable)
	require.Equal(t, 2.50, p.DeliveryFee)
	require.True(t, p.Available)
	require.Equal(t, farmer.ID, p.FarmerID)
}

func TestCreateProductRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	pending := env.seedUser("farmer1", models.RoleFarmer, false)

	rec, c := env.doForm(http.MethodPost, "/api/v1/farmer/products", productForm())
	env.as(c, pending)
	require.NoError(t, env.Product.CreateProduct(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t,
		"your account needs to be approved before you can add products",
		decodeResponse(t, rec)["message"])
}

func TestCreateProductRejectsBuyers(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.seedUser("anna", models.RoleBuyer, true)

	_, c := env.doForm(http.MethodPost, "/api/v1/farmer/products", productForm())
	env.as(c, buyer)
	err := env.Product.CreateProduct(c)
	requireHTTPError(t, err, http.StatusForbidden)
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)

	fields := productForm()
	fields["price"] = "-1"

	rec, c := env.doForm(http.MethodPost, "/api/v1/farmer/products", fields)
	env.as(c, farmer)
	require.NoError(t, env.Product.CreateProduct(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	fields = productForm()
	delete(fields, "unit")
	rec, c = env.doForm(http.MethodPost, "/api/v1/farmer/products", fields)
	env.as(c, farmer)
	require.NoError(t, env.Product.CreateProduct(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser("farmer1", models.RoleFarmer, true)
	other := env.seedUser("farmer2", models.RoleFarmer, true)
	p := env.seedProduct(owner.ID, "tomatoes", 5.00, 10)

	rec, c := env.doForm(http.MethodPatch, "/api/v1/farmer/products/1", productForm())
	env.as(c, other)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Product.UpdateProduct(c))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var stored models.Product
	require.NoError(t, env.DB.First(&stored, p.ID).Error)
	require.Equal(t, "tomatoes", stored.Name)
}

func TestUpdateProductAvailabilityFollowsStock(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	p := env.seedProduct(farmer.ID, "tomatoes", 5.00, 10)

	fields := productForm()
	fields["stock"] = "0"

	rec, c := env.doForm(http.MethodPatch, "/api/v1/farmer/products/1", fields)
	env.as(c, farmer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Product.UpdateProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Product
	require.NoError(t, env.DB.First(&stored, p.ID).Error)
	require.Equal(t, uint(0), stored.Quantity)
	require.False(t, stored.Available)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	p := env.seedProduct(farmer.ID, "tomatoes", 5.00, 10)

	rec, c := env.doJSON(http.MethodDelete, "/api/v1/farmer/products/1", nil)
	env.as(c, farmer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Product.DeleteProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	env.DB.Model(&models.Product{}).Where("id = ?", p.ID).Count(&count)
	require.Zero(t, count)
}

func TestToggleProduct(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	p := env.seedProduct(farmer.ID, "tomatoes", 5.00, 10)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/farmer/products/1/toggle", nil)
	env.as(c, farmer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Product.ToggleProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decodeResponse(t, rec)["available"])

	var stored models.Product
	require.NoError(t, env.DB.First(&stored, p.ID).Error)
	require.False(t, stored.Available)
}

func TestMyProducts(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	other := env.seedUser("farmer2", models.RoleFarmer, true)
	env.seedProduct(farmer.ID, "tomatoes", 5.00, 10)
	env.seedProduct(other.ID, "pears", 3.00, 10)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/farmer/products", nil)
	env.as(c, farmer)
	require.NoError(t, env.Product.MyProducts(c))

	var products []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	require.Equal(t, "tomatoes", products[0].Name)
}
