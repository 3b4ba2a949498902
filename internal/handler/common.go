package handler // package handler holds the echo HTTP handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// requestTimeout bounds the database work of a single request.  It is
// longer than the InnoDB lock wait so lock timeouts surface as 503.
const requestTimeout = 10 * time.Second

const dateLayout = "2006-01-02"

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}
