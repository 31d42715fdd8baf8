package helpers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the uniform API envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

var (
	ErrUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	ErrForbidden       = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	ErrNotFound        = echo.NewHTTPError(http.StatusNotFound, "not found")
)

func OK(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Data: data})
}

func OKMessage(ctx echo.Context, code int, message string, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Message: message, Data: data})
}
