package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res.WriteHeader(status)
	_, err = res.Write(b)
	return err
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return writeJSON(c, status, ErrorResponse{
		Error: ResponseError{Message: msg, Type: errType},
	})
}

func writeErr(c *echo.Context, err error) error {
	status, typ := classify(err)
	return writeError(c, status, typ, err.Error())
}

func boolParam(c *echo.Context, name string, def bool) (bool, error) {
	q := strings.TrimSpace(c.QueryParam(name))
	if q == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(q)
	if err != nil {
		return false, newInvalidRequest("invalid " + name + " parameter")
	}
	return v, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
