// Package classifier derives a publisher domain and a coarse country from an
// article URL. Countries come from a fixed TLD table; this is deliberately a
// heuristic, not a geolocation service.
package classifier

import (
	"fmt"
	"net/url"
	"strings"
)

// UnknownCountry is returned for every TLD outside the table, including
// generic ones like .com and .org.
const UnknownCountry = "Unknown"

var countryByTLD = map[string]string{
	"uk": "United Kingdom",
	"us": "United States",
	"ca": "Canada",
	"au": "Australia",
	"in": "India",
	"de": "Germany",
	"fr": "France",
	"jp": "Japan",
	"cn": "China",
}

// Classification pairs the verbatim hostname with its derived country.
type Classification struct {
	Domain  string
	Country string
}

// Classify parses rawURL and returns its host as the domain, subdomains
// included, plus the country mapped from the final host label.
func Classify(rawURL string) (Classification, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Classification{}, fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return Classification{}, fmt.Errorf("url %q has no host", rawURL)
	}
	return Classification{
		Domain:  host,
		Country: countryForHost(host),
	}, nil
}

func countryForHost(host string) string {
	labels := strings.Split(strings.ToLower(host), ".")
	tld := labels[len(labels)-1]
	if country, ok := countryByTLD[tld]; ok {
		return country
	}
	return UnknownCountry
}
