// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taxisync/internal/modules/booking"
	"taxisync/internal/platform"
)

type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// bookingErrorStatus maps a booking error to an HTTP status.
func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrPartialBatchFailure):
		return http.StatusMultiStatus
	case errors.Is(err, booking.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrAddressResolutionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrRemoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrRemoteConflict):
		return http.StatusConflict
	case errors.Is(err, booking.ErrRemoteUnavailable):
		return http.StatusBadGateway
	}
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeBookingError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := bookingErrorStatus(err)
	if status == http.StatusInternalServerError {
		writeError(c, status, "internal error")
		return
	}
	resp := errorResponse{Error: err.Error()}
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		resp.UpstreamStatus = apiErr.StatusCode
	}
	writeJSON(c, status, resp)
}

type replacementErrorResponse struct {
	errorResponse
	Result *booking.UpdateResult `json:"result"`
}

// writeReplacementError reports a failed replacement together with the result
// naming the booking that vanished upstream.
func writeReplacementError(c *gin.Context, res *booking.UpdateResult, err error) {
	_ = c.Error(err)
	status := bookingErrorStatus(err)
	resp := replacementErrorResponse{errorResponse: errorResponse{Error: err.Error()}, Result: res}
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		resp.UpstreamStatus = apiErr.StatusCode
	}
	writeJSON(c, status, resp)
}

// writeBatch answers a multi-item operation with its per-item outcomes. A
// BatchError where every item failed takes the status of the first failure.
func writeBatch(c *gin.Context, okStatus int, result any, err error) {
	if err == nil {
		writeJSON(c, okStatus, result)
		return
	}
	_ = c.Error(err)
	status := bookingErrorStatus(err)
	var batch *booking.BatchError
	if status != http.StatusMultiStatus && errors.As(err, &batch) && len(batch.Errs) > 0 {
		status = bookingErrorStatus(batch.Errs[0])
	}
	if status == http.StatusInternalServerError {
		status = http.StatusMultiStatus
	}
	writeJSON(c, status, result)
}
