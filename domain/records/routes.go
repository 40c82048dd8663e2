package records

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the record endpoints on e.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	crud := e.Group("/crud")
	crud.POST("/update", h.Update)
	crud.GET("/read", h.Read)
	crud.POST("/reindex", h.Reindex)

	revs := e.Group("/revisions")
	revs.GET("", h.Revisions)
	revs.GET("/read", h.RevisionRead)
}
