package models

// Vertical describes one business vertical served by the gateway.
// The slug cache, the rewrite middleware and the handlers all consume
// this table instead of scattering IDs and prefixes as literals.
type Vertical struct {
	ID             string `json:"id"`
	InternalPrefix string `json:"internalPrefix"`
	DisplayName    string `json:"displayName"`
}

// Verticals is the fixed set of business verticals. Order matters: slug
// refreshes merge per-vertical results in this order so the final mapping
// is deterministic regardless of network completion order.
var Verticals = []Vertical{
	{ID: "2", InternalPrefix: "appliances", DisplayName: "Appliance Repair"},
	{ID: "3", InternalPrefix: "religious-services", DisplayName: "Religious Services"},
	{ID: "4", InternalPrefix: "spa-salon", DisplayName: "Spa & Salon"},
	{ID: "5", InternalPrefix: "pghostels", DisplayName: "PG & Hostels"},
}

// VerticalByPrefix looks up a vertical by its internal route prefix.
func VerticalByPrefix(prefix string) (Vertical, bool) {
	for _, v := range Verticals {
		if v.InternalPrefix == prefix {
			return v, true
		}
	}
	return Vertical{}, false
}

// VerticalByID looks up a vertical by its service identifier.
func VerticalByID(id string) (Vertical, bool) {
	for _, v := range Verticals {
		if v.ID == id {
			return v, true
		}
	}
	return Vertical{}, false
}

// VerticalSlugs is the per-vertical slug set returned by the catalog API.
// Each public slug maps to a well-known internal route under the
// vertical's prefix.
type VerticalSlugs struct {
	Home             string `json:"homeSlug"`
	Category         string `json:"categorySlug"`
	RecentlyBooked   string `json:"recentlyBookedSlug"`
	FeaturedServices string `json:"featuredServicesSlug"`
	ServiceCenter    string `json:"serviceCenterSlug"`
}
