package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roataway/briya/cli/bridge/state"
)

type Handler struct {
	Store    *state.Store
	Hub      *Hub
	Gatherer prometheus.Gatherer
}

func NewHandler(store *state.Store, hub *Hub, gatherer prometheus.Gatherer) *Handler {
	return &Handler{Store: store, Hub: hub, Gatherer: gatherer}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"vehicles": h.Store.Len(),
	})
}

func (h *Handler) GetVehicles(c *gin.Context) {
	vehicles := h.Store.Snapshot()
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].TrackerID < vehicles[j].TrackerID })

	if route := c.Query("route"); route != "" {
		filtered := vehicles[:0]
		for _, v := range vehicles {
			if v.Route == route {
				filtered = append(filtered, v)
			}
		}
		vehicles = filtered
	}

	c.JSON(http.StatusOK, vehicles)
}

func (h *Handler) GetVehicle(c *gin.Context) {
	vehicle, ok := h.Store.Get(c.Param("rtu_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *Handler) GetMetrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
}

func (h *Handler) GetLive(c *gin.Context) {
	h.Hub.Serve(c.Writer, c.Request)
}
