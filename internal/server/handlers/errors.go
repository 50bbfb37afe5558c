// Provides helper functions for writing error responses.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/maruel/myaccount/internal/errors"
	"github.com/maruel/myaccount/internal/server/dto"
)

// WriteError writes err as a JSON error response. Storage errors are mapped to
// their HTTP status by apierrors.FromStorage.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		err = apierrors.PayloadTooLarge(maxBytesErr.Limit).Wrap(err)
	}
	err = apierrors.FromStorage(err)

	statusCode := http.StatusInternalServerError
	errorCode := apierrors.ErrInternal
	message := "internal error"
	var details map[string]any
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		statusCode = apiErr.StatusCode()
		errorCode = apiErr.Code()
		message = apiErr.Message()
		details = apiErr.Details()
	}
	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
	} else {
		slog.InfoContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
	}
	if errorCode == apierrors.ErrBusy {
		w.Header().Set("Retry-After", strconv.Itoa(apierrors.RetryAfterSeconds))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    string(errorCode),
			Message: message,
		},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(ctx, "Failed to encode error response", "err", err)
	}
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}
