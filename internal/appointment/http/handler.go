package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/request"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/response"
	"github.com/gracefellowship/church-admin-backend/internal/schedule"
)

// ReminderRunner triggers one reminder pass on demand.
type ReminderRunner interface {
	RunPass(ctx context.Context, now time.Time, lookahead time.Duration) (appointment.PassResult, error)
}

type Handler struct {
	service  appointment.Service
	reminder ReminderRunner
	now      func() time.Time
}

func NewHandler(service appointment.Service, reminder ReminderRunner) *Handler {
	return &Handler{
		service:  service,
		reminder: reminder,
		now:      time.Now,
	}
}

func (h *Handler) location() *time.Location {
	return h.service.Converter().Location()
}

// Slots lists the still-bookable authority-local start times of one date.
func (h *Handler) Slots(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	avail, err := h.service.AvailableSlots(c.Request.Context(), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		Date:     avail.Date.String(),
		Timezone: h.location().String(),
		Slots:    schedule.LocalLabels(avail.Slots),
	})
}

// Policy describes the weekly bookable windows.
func (h *Handler) Policy(c *gin.Context) {
	c.JSON(http.StatusOK, NewPolicyResponse(h.service.Policy(), h.service.Converter()))
}

// Create books a slot for an anonymous requester.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	req := appointment.CreateRequest{
		FullName:  body.FullName,
		Phone:     body.PhoneNumber,
		Email:     body.Email,
		SlotLocal: body.SlotLocalDateTime,
		Medium:    body.Medium,
		Remark:    body.Remark,
	}

	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateBookingResponse{
		Booking:          NewBookingResponse(result.Booking, h.location()),
		CancelToken:      result.Booking.CancelToken,
		ConfirmationSent: result.ConfirmationSent,
	})
}

// List returns bookings for staff, newest slot last unless sort_order=desc.
func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	filter := appointment.Filter{
		Email:     req.Email,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	}
	for _, s := range req.Status {
		filter.StatusIn = append(filter.StatusIn, appointment.Status(s))
	}

	conv := h.service.Converter()
	if req.From != "" {
		d, err := schedule.ParseDate(req.From)
		if err != nil {
			response.Error(c, err)
			return
		}
		from, _ := conv.DayBounds(d)
		filter.From = &from
	}
	if req.To != "" {
		d, err := schedule.ParseDate(req.To)
		if err != nil {
			response.Error(c, err)
			return
		}
		_, to := conv.DayBounds(d)
		filter.To = &to
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b, h.location())
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.location()))
}

// Update applies a staff patch: a status transition, a remark, a meeting link, or any mix.
func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	req := appointment.UpdateRequest{
		Status:      body.Status,
		Remark:      body.Remark,
		MeetingLink: body.MeetingLink,
	}

	b, err := h.service.Update(c.Request.Context(), uri.ID, req, auth.GetPrincipal(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.location()))
}

// Cancel lets a requester cancel with the token handed out at booking time.
func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body CancelBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.CancelWithToken(c.Request.Context(), uri.ID, body.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.location()))
}

// Calendar downloads the booking as an iCalendar file. Staff need no token.
func (h *Handler) Calendar(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var query CalendarRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	ics, err := h.service.CalendarExport(c.Request.Context(), uri.ID, auth.GetPrincipal(c), query.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="appointment.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// RunReminders runs one reminder pass immediately.
func (h *Handler) RunReminders(c *gin.Context) {
	var body RunRemindersRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request body", err)
			return
		}
	}

	lookahead := time.Duration(body.LookaheadMinutes) * time.Minute
	result, err := h.reminder.RunPass(c.Request.Context(), h.now().UTC(), lookahead)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
