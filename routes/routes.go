package routes

import (
	"net/http"
	"time"

	"dhub/handlers"
	"dhub/middleware"
	"dhub/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterVerticalRoutes registers the internal vertical pages that the
// slug rewrite middleware targets. Public slugs never reach these paths
// directly; the rewrite layer maps them here.
func RegisterVerticalRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	v := r.Group("/:vertical")
	{
		v.GET("", hb.Catalog.VerticalHome)
		v.GET("/categories", hb.Catalog.Categories)
		v.GET("/categories/:category", hb.Catalog.Category)
		v.GET("/recent", hb.Catalog.RecentlyBooked)
		v.GET("/featured", hb.Catalog.Featured)
		v.GET("/centers", hb.Catalog.ServiceCenters)

		pages := v.Group("")
		pages.Use(middleware.FlowSessionMiddleware())
		pages.GET("/booking/address", hb.Flow.BookingAddressPage)
		pages.GET("/booking/failed", hb.Flow.BookingFailed)
		pages.GET("/thank-you", hb.Flow.ThankYou)
	}
}

// RegisterFlowRoutes registers the session-scoped booking flow API.
func RegisterFlowRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/flow")
	{
		api.Use(middleware.FlowSessionMiddleware())
		api.GET("/state", hb.Flow.GetFlowState)
		api.POST("/address", hb.Flow.SelectAddress)
		api.POST("/cart/items", hb.Flow.AddCartItem)
		api.DELETE("/cart/items/:itemID", hb.Flow.RemoveCartItem)
		api.POST("/last-service", hb.Flow.SetLastService)
		api.POST("/tour/complete", hb.Flow.CompleteTour)
		api.POST("/package", hb.Flow.SelectPackage)
	}
}

// RegisterBookingRoutes registers checkout, confirmation and payment
// callback endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/booking")
	{
		bookingGroup.Use(middleware.FlowSessionMiddleware())
		bookingGroup.POST("/:vertical/checkout", hb.Flow.ProceedToCheckout)
		bookingGroup.POST("/:vertical/confirm", hb.Flow.ConfirmBooking)
	}

	paymentGroup := r.Group("/api/payment")
	{
		paymentGroup.Use(middleware.FlowSessionMiddleware())
		paymentGroup.GET("/:vertical/callback", hb.Flow.PaymentCallback)
	}

	r.GET("/api/bookings/recent", hb.Flow.RecentBookings)
}

// RegisterCatalogRoutes registers catalog support endpoints.
func RegisterCatalogRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/catalog")
	{
		api.GET("/slugs", hb.Catalog.GetSlugs)
	}
}

// RegisterGeoRoutes registers geocoding endpoints.
func RegisterGeoRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/geo")
	{
		api.POST("/geocode", hb.Geo.GeocodeAddress)
		api.GET("/location", hb.Geo.CurrentLocation)
	}
}

// RegisterHealthRoute registers health and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterCatalogRoutes(r, hb)
	RegisterGeoRoutes(r, hb)
	RegisterFlowRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterVerticalRoutes(r, hb)
}
