package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"dhub/config"
	"dhub/middleware"
	"dhub/utils"

	"github.com/gin-gonic/gin"
)

// GeoHandler exposes geocoding for the address-selection page and the
// resolved client location.
type GeoHandler struct{}

// geocodeResponse is the subset of the Google Geocoding API response we
// consume.
type geocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// GeocodeAddress resolves a free-text address to coordinates.
func (h *GeoHandler) GeocodeAddress(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing query parameter", "address is required")
		return
	}

	apiKey := config.AppConfig.GoogleMapsAPIKey
	if apiKey == "" {
		utils.JSONError(c, http.StatusInternalServerError, "Geocoding unavailable", "maps API key not configured")
		return
	}

	lookupURL := fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/geocode/json?address=%s&key=%s",
		url.QueryEscape(address), apiKey,
	)
	resp, err := http.Get(lookupURL)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Geocoding failed", "please try again later")
		return
	}
	defer resp.Body.Close()

	var geocoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&geocoded); err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Geocoding failed", "please try again later")
		return
	}
	if geocoded.Status != "OK" || len(geocoded.Results) == 0 {
		utils.JSONError(c, http.StatusNotFound, "Address not found", geocoded.Status)
		return
	}

	best := geocoded.Results[0]
	c.JSON(http.StatusOK, gin.H{
		"formattedAddress": best.FormattedAddress,
		"latitude":         best.Geometry.Location.Lat,
		"longitude":        best.Geometry.Location.Lng,
	})
}

// CurrentLocation returns the location resolved for this client, which
// falls back to the Hyderabad default when resolution failed.
func (h *GeoHandler) CurrentLocation(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.LocationFromContext(c))
}
