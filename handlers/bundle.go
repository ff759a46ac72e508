package handlers

// HandlerBundle groups the gateway's handlers for route registration.
type HandlerBundle struct {
	Flow    *FlowHandler
	Catalog *CatalogHandler
	Geo     *GeoHandler
}
