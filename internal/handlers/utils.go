package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/planetevo/apiserver/internal/apperror"
	"github.com/planetevo/apiserver/internal/services"
	"github.com/planetevo/apiserver/internal/store"
)

const (
	maxBodyBytes = 1 << 20
	maxLimit     = services.MaxLimit
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrorResponse is the error payload. Field names the offending request
// field for validation errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// respondError maps an error to a status code. Storage failures and
// unexpected errors are logged with their cause; the client only sees a
// generic message.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message, Field: appErr.Field})
	case errors.Is(err, apperror.ErrNotFound):
		writeError(w, http.StatusNotFound, appErr.Message)
	case errors.Is(err, apperror.ErrUnavailable):
		// Connection trouble is transient; anything else means the database
		// rejected a statement.
		level := slog.LevelError
		if store.IsUnavailable(appErr.Cause) {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, appErr.Message,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("cause", appErr.Cause),
		)
		writeError(w, http.StatusServiceUnavailable, appErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a size-capped JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var (
			maxBytesErr *http.MaxBytesError
			typeErr     *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &maxBytesErr):
			return apperror.ValidationFailed("", fmt.Sprintf("request body must not exceed %d bytes", maxBytesErr.Limit))
		case errors.As(err, &typeErr):
			return apperror.ValidationFailed(typeErr.Field, fmt.Sprintf("%s has an invalid type", typeErr.Field))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body is required")
		default:
			return apperror.ValidationFailed("", "request body must be valid JSON")
		}
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return apperror.ValidationFailed("", "invalid request body")
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	name := fe.Field()
	var message string
	switch fe.Tag() {
	case "required":
		message = name + " is required"
	case "gte":
		message = fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "lte":
		message = fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	default:
		message = name + " is invalid"
	}
	return apperror.ValidationFailed(name, message)
}

// parseLimit reads the limit query parameter. Values above maxLimit are clamped.
func parseLimit(r *http.Request, defaultLimit int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperror.ValidationFailed("limit", "limit must be a positive integer")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// auth0IDParam returns the identity from the path. chi matches on
// r.URL.RawPath when it is set, so only then is the segment still escaped.
func auth0IDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "auth0ID")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(id)
		if err != nil {
			return "", apperror.ValidationFailed("auth0_id", "invalid auth0_id")
		}
		id = unescaped
	}
	if strings.TrimSpace(id) == "" {
		return "", apperror.ValidationFailed("auth0_id", "invalid auth0_id")
	}
	return id, nil
}
