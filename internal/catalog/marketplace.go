package catalog

import (
	"fmt"
	"net/url"
)

const (
	marketplaceSearchPath = "/all/avtozapchasti_i_aksessuary"
	defaultSubdomain      = "novosibirsk"
)

// citySubdomains city name -> regional subdomain, shared by both sites
var citySubdomains = map[string]string{
	"Москва":          "moskva",
	"Санкт-Петербург": "sankt-peterburg",
	"Новосибирск":     "novosibirsk",
	"Екатеринбург":    "ekaterinburg",
	"Казань":          "kazan",
}

// Subdomain returns the regional subdomain for city, or the default one
func Subdomain(city string) string {
	if sub, ok := citySubdomains[city]; ok {
		return sub
	}
	return defaultSubdomain
}

// MarketplaceLink deep link into the secondary marketplace search for text.
// No request is made.
func MarketplaceLink(city, text string) string {
	return fmt.Sprintf("https://%s.avito.ru%s?%s",
		Subdomain(city), marketplaceSearchPath, url.Values{"q": {text}}.Encode())
}
