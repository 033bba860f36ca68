package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/cart"
	"github.com/Skotchmaster/farmmarket/internal/checkout"
	"github.com/Skotchmaster/farmmarket/internal/hash"
	"github.com/Skotchmaster/farmmarket/internal/images"
	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/notify"
)

type mailRecorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (s *mailRecorder) Send(m notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *mailRecorder) byKind(kind notify.Kind) []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Message
	for _, m := range s.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Store    *cart.MemoryStore
	Mail     *mailRecorder
	Notifier *notify.Dispatcher

	Auth    *AuthHandler
	Catalog *CatalogHandler
	Product *ProductHandler
	Cart    *CartHandler
	Order   *OrderHandler
	Admin   *AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Order{},
		&models.OrderItem{}, &models.RefreshToken{},
	))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mail := &mailRecorder{}
	notifier := notify.NewDispatcher(mail, logger, 1, 64)
	t.Cleanup(notifier.Close)

	store := cart.NewMemoryStore()
	cartService := &cart.Service{DB: db, Store: store}
	checkoutService := &checkout.Service{
		DB:       db,
		Cart:     cartService,
		Notifier: notifier,
		Logger:   logger,
	}

	env := &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Store:    store,
		Mail:     mail,
		Notifier: notifier,

		Auth: &AuthHandler{
			DB:            db,
			JWTSecret:     []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Notifier:      notifier,
		},
		Catalog: &CatalogHandler{DB: db},
		Product: &ProductHandler{DB: db, Images: &images.Store{Dir: t.TempDir()}},
		Cart:    &CartHandler{Cart: cartService},
		Order:   &OrderHandler{DB: db, Service: checkoutService},
		Admin:   &AdminHandler{DB: db, Notifier: notifier},
	}
	return env
}

func (env *testEnv) doJSON(method, path string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// as impersonates an authenticated caller the way the token middleware
// would.
func (env *testEnv) as(c echo.Context, u *models.User) {
	c.Set("userID", u.ID)
	c.Set("role", u.Role)
}

func (env *testEnv) seedUser(username, role string, approved bool) *models.User {
	env.T.Helper()
	passwordHash, err := hash.HashPassword("secret123")
	require.NoError(env.T, err)
	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		Role:         role,
		IsApproved:   approved,
		Location:     "Riverside",
	}
	require.NoError(env.T, env.DB.Create(&u).Error)
	return &u
}

func (env *testEnv) seedProduct(farmerID uint, name string, price float64, qty uint) *models.Product {
	env.T.Helper()
	p := models.Product{
		Name:      name,
		Price:     price,
		Quantity:  qty,
		Unit:      "kg",
		Available: qty > 0,
		Category:  "vegetables",
		FarmerID:  farmerID,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return &p
}

func (env *testEnv) seedOrder(buyerID, farmerID uint, status string, total float64) *models.Order {
	env.T.Helper()
	o := models.Order{
		BuyerID:    buyerID,
		FarmerID:   farmerID,
		Status:     status,
		TotalPrice: total,
	}
	require.NoError(env.T, env.DB.Create(&o).Error)
	return &o
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, code, httpErr.Code)
}
