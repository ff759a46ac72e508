package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dhub/models"
	"dhub/services/catalog"
	"dhub/services/upstream"
	"dhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// sectionCacheTTL bounds how long a relayed catalog section is served
// from Redis before the remote API is asked again.
const sectionCacheTTL = 5 * time.Minute

// CatalogHandler serves vertical catalog content fetched from the remote
// booking API, with section payloads cached in Redis.
type CatalogHandler struct {
	Client *upstream.Client
	Slugs  *catalog.SlugCache
	Cache  *redis.Client
	Logger *zap.Logger
}

func NewCatalogHandler(client *upstream.Client, slugs *catalog.SlugCache, cache *redis.Client, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Client: client, Slugs: slugs, Cache: cache, Logger: logger}
}

// section fetches one catalog section for the vertical and relays the
// envelope's data payload. Cache first; a miss or any cache error falls
// through to the remote API.
func (h *CatalogHandler) section(c *gin.Context, pathTemplate string) {
	prefix := c.Param("vertical")
	v, ok := models.VerticalByPrefix(prefix)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "Unknown vertical", prefix)
		return
	}

	ctx := c.Request.Context()
	path := fmt.Sprintf(pathTemplate, v.ID)
	cacheKey := "catalog:" + path

	if h.Cache != nil {
		cached, err := h.Cache.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": json.RawMessage(cached)})
			return
		}
	}

	env, err := h.Client.GetEnvelope(ctx, path)
	if err != nil {
		h.relayError(c, err)
		return
	}
	if !env.Success {
		utils.JSONError(c, http.StatusBadGateway, "Catalog lookup rejected", env.Message)
		return
	}

	if h.Cache != nil && len(env.Data) > 0 {
		if err := h.Cache.Set(ctx, cacheKey, []byte(env.Data), sectionCacheTTL).Err(); err != nil {
			h.Logger.Warn("failed to cache catalog section",
				zap.String("key", cacheKey), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": env.Data})
}

func (h *CatalogHandler) VerticalHome(c *gin.Context) {
	h.section(c, "/v2/services/%s/home")
}

func (h *CatalogHandler) Categories(c *gin.Context) {
	h.section(c, "/v2/services/%s/categories")
}

func (h *CatalogHandler) RecentlyBooked(c *gin.Context) {
	h.section(c, "/v2/services/%s/recently-booked")
}

func (h *CatalogHandler) Featured(c *gin.Context) {
	h.section(c, "/v2/services/%s/featured")
}

func (h *CatalogHandler) ServiceCenters(c *gin.Context) {
	h.section(c, "/v2/services/%s/service-centers")
}

// Category serves one child category of a vertical, e.g. the fixed
// verified-partners category under appliances.
func (h *CatalogHandler) Category(c *gin.Context) {
	h.section(c, "/v2/services/%s/categories/"+url.PathEscape(c.Param("category")))
}

// GetSlugs exposes the current slug mapping, mainly for troubleshooting.
func (h *CatalogHandler) GetSlugs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"slugs": h.Slugs.GetDynamicSlugs(c.Request.Context())})
}

// relayError translates an upstream failure into the matching HTTP
// response, keeping the classified message user-facing.
func (h *CatalogHandler) relayError(c *gin.Context, err error) {
	var status int
	switch upstream.KindOf(err) {
	case upstream.KindNotFound:
		status = http.StatusNotFound
	case upstream.KindUnauthorized:
		status = http.StatusUnauthorized
	case upstream.KindValidation:
		status = http.StatusBadRequest
	case upstream.KindTimeout:
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusBadGateway
	}
	message := "Upstream request failed"
	var ue *upstream.Error
	if errors.As(err, &ue) {
		message = ue.Message
	}
	utils.JSONError(c, status, message, "")
}
