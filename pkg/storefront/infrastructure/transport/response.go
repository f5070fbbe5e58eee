package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/storefront/domain/model"
)

type errorResponse struct {
	Error string                `json:"error"`
	Lines []model.StockShortage `json:"lines,omitempty"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientStock), errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}

	var stockErr *model.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		resp.Lines = stockErr.Lines
	case status == http.StatusInternalServerError:
		log.WithError(err).Error("request failed")
		resp.Error = "internal error"
	case status == http.StatusNotFound:
		// never tell a caller whether the record exists for someone else
		resp.Error = "not found"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = io.WriteString(w, string(b)); err != nil {
		log.WithField("err", err).Error("write response status")
	}
}

func readJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Wrap(model.ErrInvalidInput, "malformed request body: "+err.Error())
	}
	return nil
}

// readOptionalJSON accepts an empty body and leaves v untouched.
func readOptionalJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && err != io.EOF {
		return errors.Wrap(model.ErrInvalidInput, "malformed request body: "+err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errors.Wrapf(model.ErrInvalidInput, "%s is not a valid id", name)
	}
	return id, nil
}

func optionalID(raw string, name string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(model.ErrInvalidInput, "%s is not a valid id", name)
	}
	return &id, nil
}

// language picks the display language from ?lang or Accept-Language.
func language(r *http.Request) model.Language {
	if lang, ok := model.ParseLanguage(r.URL.Query().Get("lang")); ok {
		return lang
	}
	for _, part := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if lang, ok := model.ParseLanguage(strings.SplitN(tag, "-", 2)[0]); ok {
			return lang
		}
	}
	return model.DefaultLanguage
}
