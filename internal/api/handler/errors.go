package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/devix/thermoscan/internal/api/response"
	"github.com/devix/thermoscan/internal/detector"
	"github.com/devix/thermoscan/internal/imagestore"
	"github.com/devix/thermoscan/internal/inspection"
	"github.com/devix/thermoscan/internal/store"
)

// serviceError maps service-layer errors onto HTTP statuses and stable error
// codes, so clients can react to the kind of failure instead of parsing
// message strings.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inspection.ErrUnknownTransformer):
		response.Error(w, http.StatusNotFound, "UNKNOWN_TRANSFORMER",
			"The referenced transformer does not exist", nil)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, imagestore.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"The requested resource does not exist", nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "DUPLICATE_KEY",
			"A resource with this identifier already exists", nil)
	case errors.Is(err, detector.ErrTimeout):
		response.Error(w, http.StatusGatewayTimeout, "DETECTOR_TIMEOUT",
			"The anomaly detector took too long to respond", nil)
	case errors.Is(err, detector.ErrUnavailable), errors.Is(err, detector.ErrInvalidResponse):
		response.Error(w, http.StatusBadGateway, "DETECTOR_UNAVAILABLE",
			"The anomaly detector is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func badRequest(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

// maxUploadBytes bounds multipart form memory; larger files spill to disk.
const maxUploadBytes = 32 << 20

// formFile reads one uploaded file from an already-parsed multipart form.
func formFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("missing file field %q", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("reading file field %q: %w", field, err)
	}
	return header.Filename, data, nil
}
