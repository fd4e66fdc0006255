package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/randytsao24/ventra/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// upstreamFailed logs the cause and answers with a generic message. Provider
// errors are never echoed to clients.
func upstreamFailed(w http.ResponseWriter, r *http.Request, err error, message string) {
	slog.Error(message,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-ID"),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, message)
}

// ValidationError is a missing or malformed request parameter
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validateQuery checks a tagged query struct and reports the first failure
func validateQuery(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: "invalid request"}
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "latitude":
		msg = fmt.Sprintf("%s must be a latitude between -90 and 90", fe.Field())
	case "longitude":
		msg = fmt.Sprintf("%s must be a longitude between -180 and 180", fe.Field())
	case "numeric", "number":
		msg = fmt.Sprintf("%s must be a number", fe.Field())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// writeValidation answers 400 for validation errors and reports whether it did
func writeValidation(w http.ResponseWriter, err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message)
		return true
	}
	return false
}

type coordQuery struct {
	Lat string `query:"lat" validate:"required,latitude"`
	Lng string `query:"lng" validate:"required,longitude"`
}

// parseCenter reads and validates the lat and lng query parameters
func parseCenter(r *http.Request) (models.Coordinate, error) {
	q := coordQuery{
		Lat: strings.TrimSpace(r.URL.Query().Get("lat")),
		Lng: strings.TrimSpace(r.URL.Query().Get("lng")),
	}
	if err := validateQuery(q); err != nil {
		return models.Coordinate{}, err
	}

	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return models.Coordinate{}, &ValidationError{Field: "lat", Message: "lat must be a number"}
	}
	lng, err := strconv.ParseFloat(q.Lng, 64)
	if err != nil {
		return models.Coordinate{}, &ValidationError{Field: "lng", Message: "lng must be a number"}
	}

	c := models.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return models.Coordinate{}, &ValidationError{Message: "lat and lng must be finite"}
	}
	return c, nil
}
