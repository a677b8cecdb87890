package api

import (
	"net/http"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/gin-gonic/gin"
)

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// MetadataHandler serves the enumerations the booking form renders.
type MetadataHandler struct{}

func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

func (h *MetadataHandler) Register(router *gin.RouterGroup) {
	router.GET("/regions", h.regions)
	router.GET("/time-slots", h.timeSlots)
}

func (h *MetadataHandler) regions(c *gin.Context) {
	regions := domain.AllRegions()
	out := make([]option, 0, len(regions))
	for _, r := range regions {
		out = append(out, option{Value: string(r), Label: r.DisplayName()})
	}
	c.JSON(http.StatusOK, out)
}

func (h *MetadataHandler) timeSlots(c *gin.Context) {
	slots := domain.AllTimeSlots()
	out := make([]option, 0, len(slots))
	for _, s := range slots {
		out = append(out, option{Value: string(s), Label: s.Label()})
	}
	c.JSON(http.StatusOK, out)
}
