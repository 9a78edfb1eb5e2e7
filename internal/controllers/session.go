package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codescanai/codescan/internal/examples"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/session"
)

// SessionController exposes the editing-session state machine over HTTP.
// Clients create a session, post events against it and poll its state
// while analyses run in the background.
type SessionController struct {
	manager *session.Manager
	gallery *examples.Gallery
}

func NewSessionController(manager *session.Manager, gallery *examples.Gallery) *SessionController {
	return &SessionController{manager: manager, gallery: gallery}
}

// sessionEvent is the wire form of a session event. Type selects the
// event; the remaining fields apply per type.
type sessionEvent struct {
	Type      string `json:"type"`
	ExampleID string `json:"exampleId,omitempty"`
	Code      string `json:"code,omitempty"`
}

// PostCreate opens a new session.
func (c *SessionController) PostCreate(w http.ResponseWriter, r *http.Request) {
	id, state := c.manager.Create()
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":    id,
		"state": state,
	})
}

// GetState returns the current session state.
func (c *SessionController) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := c.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// PostEvent applies one event and returns the state after it. Busy
// rejections surface as 409 so the client can retry after the run ends.
func (c *SessionController) PostEvent(w http.ResponseWriter, r *http.Request) {
	var raw sessionEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&raw); err != nil {
		respondError(w, decodeError(err))
		return
	}

	ev, err := c.buildEvent(raw)
	if err != nil {
		respondError(w, err)
		return
	}

	state, err := c.manager.Apply(chi.URLParam(r, "id"), ev)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// buildEvent maps the wire form onto a reducer event, resolving example
// references through the gallery.
func (c *SessionController) buildEvent(raw sessionEvent) (session.Event, error) {
	switch raw.Type {
	case "select_example":
		example, err := c.gallery.Get(raw.ExampleID)
		if err != nil {
			return nil, err
		}
		return session.SelectExample{
			ID:       example.ID,
			Code:     example.Code,
			Language: example.Language,
		}, nil
	case "edit_code":
		return session.EditCode{Code: raw.Code}, nil
	case "start_analysis":
		return session.StartAnalysis{}, nil
	default:
		return nil, models.ErrInvalidRequest
	}
}
