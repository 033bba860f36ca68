package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/farmmarket/internal/policy"
)

// Response is the JSON envelope for mutation endpoints.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, Response{Success: false, Message: msg})
}

// Actor pulls the authenticated caller out of the echo context, where the
// token middleware put it.
func Actor(c echo.Context) (policy.Actor, error) {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return policy.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	role, _ := c.Get("role").(string)
	return policy.Actor{UserID: userID, Role: role}, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
