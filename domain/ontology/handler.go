package ontology

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/apperror"
)

// Handler serves the ontology cache endpoints.
type Handler struct {
	cache *Cache
}

// NewHandler creates a new ontology handler.
func NewHandler(cache *Cache) *Handler {
	return &Handler{cache: cache}
}

// Invalidate handles POST /ontology/cache/invalidate, used after the
// ontology graphs change.
func (h *Handler) Invalidate(c echo.Context) error {
	if err := h.cache.Invalidate(c.Request().Context()); err != nil {
		return apperror.ErrUnavailable.WithMessage("shared cache unavailable").WithInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Closure handles GET /ontology/superclasses?class=.
func (h *Handler) Closure(c echo.Context) error {
	class := c.QueryParam("class")
	if class == "" {
		return apperror.NewBadRequest("class is required")
	}
	closure, err := h.cache.SuperClasses(c.Request().Context(), class)
	if err != nil {
		return apperror.ErrUnavailable.WithMessage("ontology lookup failed").WithInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"class": class, "superclasses": closure})
}

func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/ontology")
	g.GET("/superclasses", h.Closure)
	g.POST("/cache/invalidate", h.Invalidate)
}
