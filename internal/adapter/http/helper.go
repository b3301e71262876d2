package http

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultHistoryLimit = 50

// field prefers the bound body value and falls back to the query string, so
// read endpoints serve both GET ?k=v and POST {"k":"v"}.
func field(c echo.Context, bound, name string) string {
	if bound != "" {
		return bound
	}
	return c.QueryParam(name)
}

// intQuery parses a non-negative integer query parameter, or returns def.
func intQuery(c echo.Context, name string, def int) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
