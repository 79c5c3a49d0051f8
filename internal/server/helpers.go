package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"wendle/internal/models"
	"wendle/internal/observability"
)

// errResponseWritten marks that a handler already wrote the error response.
var errResponseWritten = errors.New("response written")

var statusForCode = map[string]int{
	models.CodeValidation:       fiber.StatusBadRequest,
	models.CodeNotAuthenticated: fiber.StatusUnauthorized,
	models.CodeUnauthorized:     fiber.StatusForbidden,
	models.CodeNotFound:         fiber.StatusNotFound,
	models.CodeConflict:         fiber.StatusConflict,
	models.CodeInternal:         fiber.StatusInternalServerError,
}

// respondWithError translates an application error into an HTTP response.
// Internal errors are logged with their cause but never leak it to the client.
func respondWithError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	status, ok := statusForCode[appErr.Code]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if status == fiber.StatusInternalServerError {
		observability.GlobalLogger.Error("request failed",
			"path", c.Path(),
			"method", c.Method(),
			"error", err,
		)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// parseID reads a positive integer route parameter. On failure it writes a
// 400 response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid " + humanizeParam(param),
			"code":  models.CodeValidation,
		})
		return 0, errResponseWritten
	}
	return uint(id), nil
}

func humanizeParam(param string) string {
	return strings.ReplaceAll(param, "_", " ")
}

// parseLimit reads an optional ?limit= query with a cap.
func parseLimit(c *fiber.Ctx, def, max int) int {
	limit := c.QueryInt("limit", def)
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
