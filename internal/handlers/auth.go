package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/hash"
	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/mykafka"
	"github.com/Skotchmaster/farmmarket/internal/notify"
	"github.com/Skotchmaster/farmmarket/internal/service/token"
)

var emailRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

type AuthHandler struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	Notifier      *notify.Dispatcher
	Producer      *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any, key uint) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(key), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
		Role            string `json:"role"`
		Location        string `json:"location"`
		Phone           string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return fail(c, http.StatusBadRequest, "please fill in all required fields")
	}
	if req.Password != req.ConfirmPassword {
		return fail(c, http.StatusBadRequest, "passwords do not match")
	}
	if len(req.Password) < 6 {
		return fail(c, http.StatusBadRequest, "password must be at least 6 characters long")
	}
	if !emailRe.MatchString(req.Email) {
		return fail(c, http.StatusBadRequest, "please enter a valid email address")
	}
	if req.Role != models.RoleBuyer && req.Role != models.RoleFarmer {
		return fail(c, http.StatusBadRequest, "invalid role")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fail(c, http.StatusBadRequest, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return fail(c, http.StatusBadRequest, "username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		Location:     req.Location,
		Phone:        req.Phone,
		// Farmers wait for an admin, buyers may shop right away.
		IsApproved: req.Role != models.RoleFarmer,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Notifier.Welcome(&user)
	h.publish(c, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	}, user.ID)

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "please fill in all fields")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return fail(c, http.StatusUnauthorized, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid email or password")
	}
	if user.IsBlocked {
		return fail(c, http.StatusForbidden, "your account has been blocked by an admin")
	}
	if user.Role == models.RoleFarmer && !user.IsApproved {
		return fail(c, http.StatusForbidden, "your account is pending approval by an admin")
	}

	accessToken, err := token.SignAccessToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}
	refreshToken, err := token.SignRefreshToken(user.ID, user.Role, h.RefreshSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}
	if err := token.SaveRefreshToken(h.DB, refreshToken, user.ID, user.Role); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.SetCookie(token.CreateCookie("accessToken", accessToken, "/", time.Now().Add(token.AccessTTL)))
	c.SetCookie(token.CreateCookie("refreshToken", refreshToken, "/", time.Now().Add(token.RefreshTTL)))

	h.publish(c, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	}, user.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"role":          user.Role,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	refreshCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return fail(c, http.StatusBadRequest, "not logged in")
	}

	if err := h.DB.Model(&models.RefreshToken{}).
		Where("token = ?", refreshCookie.Value).
		Update("revoked", true).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(token.CreateCookie("accessToken", "", "/", expired))
	c.SetCookie(token.CreateCookie("refreshToken", "", "/", expired))

	return c.JSON(http.StatusOK, Response{Success: true, Message: "logged out"})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}
	var user models.User
	if err := h.DB.First(&user, actor.UserID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	var req struct {
		Username string `json:"username"`
		Location string `json:"location"`
		Phone    string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.First(&user, actor.UserID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	if req.Username != "" && req.Username != user.Username {
		var existing models.User
		if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
			return fail(c, http.StatusBadRequest, "username already taken")
		}
		user.Username = req.Username
	}
	user.Location = req.Location
	user.Phone = req.Phone

	if err := h.DB.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// BecomeFarmer takes an application from a visitor and creates a pending
// farmer account with a throwaway password. The admin approval mail doubles
// as the invitation to log in and reset it.
func (h *AuthHandler) BecomeFarmer(c echo.Context) error {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || !emailRe.MatchString(req.Email) {
		return fail(c, http.StatusBadRequest, "name and a valid email are required")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fail(c, http.StatusBadRequest, "a user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	passwordHash, err := hash.HashPassword(uuid.NewString())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user := models.User{
		Username:     req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleFarmer,
		Location:     req.Address,
		Phone:        req.Phone,
		IsApproved:   false,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: "your application has been submitted, we will contact you soon",
	})
}
