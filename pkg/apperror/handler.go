package apperror

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders errors as {"error":{"code","message","details"}}.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := http.StatusInternalServerError, ErrInternal.Body()

		if appErr, ok := As(err); ok {
			code, body = appErr.HTTPStatus, appErr.Body()
		} else if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			body = map[string]any{"error": map[string]any{
				"code":    codeForStatus(he.Code),
				"message": http.StatusText(he.Code),
			}}
			if msg, ok := he.Message.(string); ok {
				body["error"].(map[string]any)["message"] = msg
			}
		}

		if code >= 500 {
			log.Error("request error",
				slog.Int("status", code),
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	default:
		return "internal_error"
	}
}
