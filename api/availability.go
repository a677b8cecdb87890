package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/service/availability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const availabilityEvent = "availability"

type AvailabilityHandler struct {
	service availability.AvailabilityUseCase
	logger  *zap.Logger
}

func NewAvailabilityHandler(service availability.AvailabilityUseCase, logger *zap.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityHandler{service: service, logger: logger}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.calendar)
	router.GET("/stream", h.stream)
	router.GET("/:date", h.date)
	router.GET("/:date/slots/:slot", h.slot)
	router.GET("/:date/alternatives", h.alternatives)
}

func (h *AvailabilityHandler) calendar(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Calendar(c.Request.Context()))
}

func (h *AvailabilityHandler) date(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}
	day, found := h.service.CheckDate(c.Request.Context(), date)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "date is outside the booking window"})
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *AvailabilityHandler) slot(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}
	slot, err := domain.ParseTimeSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slotAvailability, found := h.service.CheckTimeSlot(c.Request.Context(), date, slot)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "date is outside the booking window"})
		return
	}
	c.JSON(http.StatusOK, slotAvailability)
}

func (h *AvailabilityHandler) alternatives(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}
	slot, err := domain.ParseTimeSlot(c.Query("time_slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	partySize, err := strconv.Atoi(c.DefaultQuery("party_size", "1"))
	if err != nil || partySize < domain.MinPartySize || partySize > domain.MaxPartySize {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidPartySize.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.Alternatives(c.Request.Context(), date, slot, partySize))
}

// stream pushes the calendar as server-sent events, once on connect and
// again after every change. Slow clients only ever see the latest snapshot.
func (h *AvailabilityHandler) stream(c *gin.Context) {
	updates := make(chan []domain.DateAvailability, 1)
	unsubscribe := h.service.Subscribe(func(calendar []domain.DateAvailability) {
		offerLatest(updates, calendar)
	})
	defer unsubscribe()

	h.logger.Debug("availability stream opened", zap.String("client_ip", c.ClientIP()))
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case calendar := <-updates:
			c.SSEvent(availabilityEvent, calendar)
			return true
		}
	})
	h.logger.Debug("availability stream closed", zap.String("client_ip", c.ClientIP()))
}

func offerLatest(ch chan []domain.DateAvailability, calendar []domain.DateAvailability) {
	for {
		select {
		case ch <- calendar:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func parseDateParam(c *gin.Context) (time.Time, bool) {
	date, err := time.Parse(domain.DateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted as YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}
