package model

// AppData application options configured per store
type AppData struct {
	IgnoreTriggers []string      `json:"ignore_triggers,omitempty"`
	FBPixelID      string        `json:"fb_pixel_id,omitempty"`
	FBGraphToken   string        `json:"fb_graph_token,omitempty"`
	FBDisableCart  bool          `json:"fb_disable_cart,omitempty"`
	PixelsByDomain []DomainPixel `json:"pixels_by_domain,omitempty"`
}

// DomainPixel credential pair overriding the store default for one
// domain
type DomainPixel struct {
	Domain       string `json:"domain,omitempty"`
	FBPixelID    string `json:"fb_pixel_id,omitempty"`
	FBGraphToken string `json:"fb_graph_token,omitempty"`
}

// IgnoresTrigger reports whether the store opted out of notifications
// for the given resource
func (a *AppData) IgnoresTrigger(resource string) bool {
	for _, r := range a.IgnoreTriggers {
		if r == resource {
			return true
		}
	}
	return false
}
