package api

import (
	"net/http"

	"streamline/internal/services"
)

// StatusForError maps an error marker to an HTTP status code.
func StatusForError(err error) int {
	switch services.KindOf(err) {
	case services.KindInvalidRequest:
		return http.StatusBadRequest
	case services.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case services.KindStaging:
		return http.StatusBadGateway
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
