// README: Read-only ride request lookup for operators and debugging.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

type RideFinder interface {
	FindByRequester(ctx context.Context, requester types.ID) (*ride.Request, error)
}

type RideHandler struct {
	rides RideFinder
}

func NewRideHandler(rides RideFinder) *RideHandler {
	return &RideHandler{rides: rides}
}

type pointResp struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

type rideResp struct {
	ID          types.ID  `json:"id"`
	RequesterID types.ID  `json:"requester_id"`
	Origin      pointResp `json:"origin"`
	Destination pointResp `json:"destination"`
	DepartAt    time.Time `json:"depart_at"`
	MatchedWith *types.ID `json:"matched_with,omitempty"`
	TotalFare   *int64    `json:"total_fare,omitempty"`
	FareShare   *int64    `json:"fare_share,omitempty"`
	Currency    string    `json:"currency,omitempty"`
}

func (h *RideHandler) Get(c *gin.Context) {
	requester := c.Param("requester")
	if requester == "" {
		writeError(c, http.StatusBadRequest, "missing requester id")
		return
	}
	r, err := h.rides.FindByRequester(c.Request.Context(), types.ID(requester))
	if err != nil {
		writeRideError(c, err)
		return
	}

	resp := rideResp{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		Origin:      pointResp{Lat: r.Origin.Lat, Lng: r.Origin.Lng, Label: r.OriginLabel},
		Destination: pointResp{Lat: r.Destination.Lat, Lng: r.Destination.Lng, Label: r.DestinationLabel},
		DepartAt:    r.DepartAt,
		MatchedWith: r.MatchedWith,
	}
	if r.TotalFare != nil {
		resp.TotalFare = &r.TotalFare.Amount
		resp.Currency = r.TotalFare.Currency
	}
	if r.Share != nil {
		resp.FareShare = &r.Share.Amount
	}
	writeJSON(c, http.StatusOK, resp)
}
