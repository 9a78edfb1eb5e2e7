package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codescanai/codescan/internal/examples"
)

// ExamplesController serves the built-in example gallery.
type ExamplesController struct {
	gallery *examples.Gallery
}

func NewExamplesController(gallery *examples.Gallery) *ExamplesController {
	return &ExamplesController{gallery: gallery}
}

// List returns every example with its code.
func (c *ExamplesController) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"examples": c.gallery.List(),
	})
}

// Get returns one example by id.
func (c *ExamplesController) Get(w http.ResponseWriter, r *http.Request) {
	example, err := c.gallery.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, example)
}
