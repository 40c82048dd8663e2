package records

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// Handler serves the record endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new records handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Update handles POST /crud/update.
func (h *Handler) Update(c echo.Context) error {
	req := UpdateRequest{
		Dataset:        c.FormValue("dataset"),
		Document:       []byte(c.FormValue("document")),
		MediaType:      c.FormValue("mime"),
		Lifecycle:      c.FormValue("lifecycle"),
		CreateRevision: true,
		Performer:      c.FormValue("performer"),
	}
	if req.MediaType == "" {
		req.MediaType = rdf.MediaNTriples
	}
	if v := c.FormValue("revision"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ErrMalformedInput.WithMessage("revision must be a boolean")
		}
		req.CreateRevision = b
	}

	res, err := h.svc.Update(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Read handles GET /crud/read?uri=&dataset=.
func (h *Handler) Read(c echo.Context) error {
	b, err := h.svc.Read(c.Request().Context(), c.QueryParam("dataset"), c.QueryParam("uri"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, rdf.MediaNTriples, b)
}

// Revisions handles GET /revisions?uri=&dataset=.
func (h *Handler) Revisions(c echo.Context) error {
	b, err := h.svc.Revisions(c.Request().Context(), c.QueryParam("dataset"), c.QueryParam("uri"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, b)
}

// RevisionRead handles GET /revisions/read?revision=&dataset=.
func (h *Handler) RevisionRead(c echo.Context) error {
	b, err := h.svc.RevisionRead(c.Request().Context(), c.QueryParam("dataset"), c.QueryParam("revision"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, rdf.MediaNTriples, b)
}

// Reindex handles POST /crud/reindex with form fields dataset and uri
// (repeatable).
func (h *Handler) Reindex(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return ErrMalformedInput.WithMessage("invalid form").WithInternal(err)
	}
	indexed, deleted, err := h.svc.Reindex(c.Request().Context(), form.Get("dataset"), form["uri"])
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"indexed": indexed, "deleted": deleted})
}
