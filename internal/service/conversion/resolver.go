package conversion

import (
	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/model"
)

// ResolveCredentials selects the destination pair for an event. The
// store default applies unless the order domain matches a
// pixels_by_domain entry with both fields populated; a matching
// override replaces the default entirely. Callers must treat an
// unusable returned pair as conversions disabled for the request.
func ResolveCredentials(appData *model.AppData, orderDomain string) fbclient.Credentials {
	creds := fbclient.Credentials{
		PixelID:     appData.FBPixelID,
		AccessToken: appData.FBGraphToken,
	}

	if orderDomain == "" {
		return creds
	}

	for _, pixel := range appData.PixelsByDomain {
		if pixel.Domain == orderDomain && pixel.FBPixelID != "" && pixel.FBGraphToken != "" {
			return fbclient.Credentials{
				PixelID:     pixel.FBPixelID,
				AccessToken: pixel.FBGraphToken,
			}
		}
	}

	return creds
}
