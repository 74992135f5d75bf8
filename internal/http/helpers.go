package httpapi

import (
	"net/http"
	"strconv"

	"dpgdoc-backend-go/internal/services"
)

var (
	errUnauthorized = services.ErrUnauthorized("Could not validate credentials")
	errInactive     = services.ErrForbidden("Inactive user")
)

func mapServiceError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	if serr, ok := err.(services.ServiceError); ok {
		WriteError(w, serr.Status, serr.Message)
		return true
	}
	return false
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
