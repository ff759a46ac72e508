package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"dhub/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HyderabadDefault is the fallback location used whenever the client's
// position cannot be resolved.
var HyderabadDefault = models.UserLocation{
	Latitude:  17.3850,
	Longitude: 78.4867,
	City:      "Hyderabad",
	Source:    "default",
}

// ipLookupResult is the subset of the ipapi.co response we consume.
type ipLookupResult struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// geoCache caches resolved locations keyed by IP address.
var geoCache = make(map[string]models.UserLocation)
var geoCacheMu sync.RWMutex

// isPrivateIP checks if an IP is private or loopback.
func isPrivateIP(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	if parsedIP.IsLoopback() {
		return true
	}
	privateIPBlocks := []*net.IPNet{
		{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
		{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
		{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
	}
	for _, block := range privateIPBlocks {
		if block.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// resolveLocation looks up the client's coordinates by IP, caching the
// result. Every failure path falls back silently to the Hyderabad
// default; geolocation is best-effort and never blocks a request.
func resolveLocation(ip string, logger *zap.Logger) models.UserLocation {
	geoCacheMu.RLock()
	if loc, ok := geoCache[ip]; ok {
		geoCacheMu.RUnlock()
		return loc
	}
	geoCacheMu.RUnlock()

	if ip == "" || isPrivateIP(ip) {
		return HyderabadDefault
	}

	url := fmt.Sprintf("https://ipapi.co/%s/json/", ip)
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		logger.Warn("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return HyderabadDefault
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("geolocation lookup returned non-OK status",
			zap.String("ip", ip), zap.Int("status", resp.StatusCode))
		return HyderabadDefault
	}

	var result ipLookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Warn("failed to decode geolocation response", zap.String("ip", ip), zap.Error(err))
		return HyderabadDefault
	}
	if result.Latitude == 0 && result.Longitude == 0 {
		return HyderabadDefault
	}

	loc := models.UserLocation{
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		City:      result.City,
		Source:    "resolved",
	}
	geoCacheMu.Lock()
	geoCache[ip] = loc
	geoCacheMu.Unlock()
	return loc
}

// GeolocationMiddleware resolves the client's location and sets it in the
// request context for handlers to snapshot into the booking flow.
func GeolocationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()
		loc := resolveLocation(getClientIP(c), logger)
		c.Set("userLocation", loc)
		c.Next()
	}
}

// LocationFromContext returns the resolved location, or the Hyderabad
// default if the middleware did not run.
func LocationFromContext(c *gin.Context) models.UserLocation {
	if v, ok := c.Get("userLocation"); ok {
		if loc, ok := v.(models.UserLocation); ok {
			return loc
		}
	}
	return HyderabadDefault
}
