package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
	logger  *zap.Logger
}

type createReservationRequest struct {
	Date             string `json:"date" binding:"required"`
	TimeSlot         string `json:"time_slot" binding:"required"`
	PartySize        int    `json:"party_size" binding:"required,min=1,max=12"`
	Region           string `json:"region" binding:"required"`
	CustomerName     string `json:"customer_name" binding:"required,min=2,max=50,person_name"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone" binding:"required,phone"`
	HasChildren      bool   `json:"has_children"`
	SmokingRequested bool   `json:"smoking_requested"`
}

func (r createReservationRequest) toInput() (domain.ReservationInput, error) {
	date, err := time.Parse(domain.DateLayout, r.Date)
	if err != nil {
		return domain.ReservationInput{}, errors.New("date must be formatted as YYYY-MM-DD")
	}
	slot, err := domain.ParseTimeSlot(r.TimeSlot)
	if err != nil {
		return domain.ReservationInput{}, err
	}
	region, err := domain.ParseRegion(r.Region)
	if err != nil {
		return domain.ReservationInput{}, err
	}
	return domain.ReservationInput{
		Date:             date,
		TimeSlot:         slot,
		PartySize:        r.PartySize,
		Region:           region,
		CustomerName:     r.CustomerName,
		Email:            r.Email,
		Phone:            r.Phone,
		HasChildren:      r.HasChildren,
		SmokingRequested: r.SmokingRequested,
	}, nil
}

type historyEventResponse struct {
	EventType   string              `json:"event_type"`
	RecordedAt  string              `json:"recorded_at"`
	Reservation reservationResponse `json:"reservation"`
}

type reservationResponse struct {
	ReservationID    string `json:"reservation_id"`
	ConfirmationCode string `json:"confirmation_code"`
	CustomerName     string `json:"customer_name"`
	Date             string `json:"date"`
	TimeSlot         string `json:"time_slot"`
	TimeSlotLabel    string `json:"time_slot_label"`
	PartySize        int    `json:"party_size"`
	Region           string `json:"region"`
	RegionName       string `json:"region_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	HasChildren      bool   `json:"has_children"`
	SmokingRequested bool   `json:"smoking_requested"`
	CreatedAt        string `json:"created_at"`
}

func newReservationResponse(r *domain.Reservation) reservationResponse {
	return reservationResponse{
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		CustomerName:     r.CustomerName,
		Date:             r.Date.Format(domain.DateLayout),
		TimeSlot:         string(r.TimeSlot),
		TimeSlotLabel:    r.TimeSlot.Label(),
		PartySize:        r.PartySize,
		Region:           string(r.Region),
		RegionName:       r.Region.DisplayName(),
		Email:            r.Email,
		Phone:            r.Phone,
		HasChildren:      r.HasChildren,
		SmokingRequested: r.SmokingRequested,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

func NewReservationHandler(service reservation.ReservationUseCase, logger *zap.Logger) *ReservationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidators()
	return &ReservationHandler{service: service, logger: logger}
}

// Register mounts the handlers. Extra middleware (rate limiting) applies to
// the create route only.
func (h *ReservationHandler) Register(router *gin.RouterGroup, createMiddleware ...gin.HandlerFunc) {
	router.POST("", append(createMiddleware, h.create)...)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancel)
	router.GET("/:id/history", h.history)
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateReservation(c.Request.Context(), input)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(created))
}

func (h *ReservationHandler) writeCreateError(c *gin.Context, err error) {
	var unavailable *reservation.SlotUnavailableError
	switch {
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"alternatives": unavailable.Alternatives,
		})
	case errors.Is(err, domain.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPartySize),
		errors.Is(err, domain.ErrInvalidTimeSlot),
		errors.Is(err, domain.ErrInvalidRegion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("create reservation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *ReservationHandler) list(c *gin.Context) {
	reservations := h.service.ListReservations(c.Request.Context())
	out := make([]reservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, newReservationResponse(&reservations[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReservationHandler) get(c *gin.Context) {
	found, ok := h.service.GetReservation(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(found))
}

func (h *ReservationHandler) cancel(c *gin.Context) {
	if !h.service.CancelReservation(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"cancelled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// history lists archived events, including those of cancelled reservations.
func (h *ReservationHandler) history(c *gin.Context) {
	events, err := h.service.History(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, reservation.ErrHistoryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("read reservation history failed", zap.String("reservation_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	case len(events) == 0:
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	out := make([]historyEventResponse, 0, len(events))
	for i := range events {
		out = append(out, historyEventResponse{
			EventType:   string(events[i].EventType),
			RecordedAt:  events[i].CreatedAt.Format(time.RFC3339),
			Reservation: newReservationResponse(&events[i].Reservation),
		})
	}
	c.JSON(http.StatusOK, out)
}
