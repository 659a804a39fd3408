// README: Booking handlers for submit/read/update/cancel/quote and their bulk variants.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"taxisync/internal/modules/booking"
	"taxisync/internal/types"
)

// BookingService is the booking synchronizer as the HTTP layer uses it.
type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (*booking.CreateResult, error)
	Read(ctx context.Context, id types.ID) (*booking.Booking, error)
	Update(ctx context.Context, id types.ID, ch booking.Changes) (*booking.UpdateResult, error)
	Cancel(ctx context.Context, id types.ID) (*booking.CancelResult, error)
	Quote(ctx context.Context, req booking.QuoteRequest) (*booking.QuoteResult, error)
	SubmitMany(ctx context.Context, reqs []booking.CreateRequest) (*booking.BulkResult, error)
	CancelMany(ctx context.Context, ids []types.ID) (*booking.BulkResult, error)
}

type BookingHandler struct {
	bookings BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

const maxBulkItems = 200

func (h *BookingHandler) Submit(c *gin.Context) {
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		if res != nil && len(res.Groups) > 1 {
			writeBatch(c, http.StatusCreated, res, err)
			return
		}
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

type bulkSubmitReq struct {
	Bookings []booking.CreateRequest `json:"bookings"`
}

func (h *BookingHandler) SubmitMany(c *gin.Context) {
	var req bulkSubmitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Bookings) == 0 || len(req.Bookings) > maxBulkItems {
		writeError(c, http.StatusBadRequest, "bookings must hold 1 to 200 items")
		return
	}
	res, err := h.bookings.SubmitMany(c.Request.Context(), req.Bookings)
	writeBatch(c, http.StatusOK, res, err)
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Read(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Update(c *gin.Context) {
	var ch booking.Changes
	if err := c.ShouldBindJSON(&ch); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.bookings.Update(c.Request.Context(), types.ID(c.Param("id")), ch)
	if err != nil {
		if res != nil && res.Replaced {
			writeReplacementError(c, res, err)
			return
		}
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	res, err := h.bookings.Cancel(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type bulkCancelReq struct {
	IDs []types.ID `json:"ids"`
}

func (h *BookingHandler) CancelMany(c *gin.Context) {
	var req bulkCancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.IDs) == 0 || len(req.IDs) > maxBulkItems {
		writeError(c, http.StatusBadRequest, "ids must hold 1 to 200 items")
		return
	}
	res, err := h.bookings.CancelMany(c.Request.Context(), req.IDs)
	writeBatch(c, http.StatusOK, res, err)
}

func (h *BookingHandler) Quote(c *gin.Context) {
	var req booking.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	q, err := h.bookings.Quote(c.Request.Context(), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
