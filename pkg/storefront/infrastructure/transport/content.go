package transport

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

func contentKind(r *http.Request) (model.ContentKind, error) {
	kind := model.ContentKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		return "", errors.Wrapf(model.ErrInvalidInput, "unknown content kind %q", kind)
	}
	return kind, nil
}

func (h *Handler) generateContent(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	kind, err := contentKind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Brief string `json:"brief"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	draft, err := h.services.Content.Generate(r.Context(), caller, kind, req.Brief)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"draft": draft})
}

func (h *Handler) acceptContent(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	kind, err := contentKind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Draft json.RawMessage `json:"draft"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	content, err := h.services.Content.Accept(r.Context(), caller, kind, req.Draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContentResponse(*content))
}

func (h *Handler) listContent(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	kind, err := contentKind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.services.Content.List(r.Context(), caller, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]contentResponse, 0, len(items))
	for _, c := range items {
		resp = append(resp, toContentResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}
