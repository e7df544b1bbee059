package sessions

import (
	"net"
	"net/http"
	"strconv"
)

// GeoResolver resolves the geolocation of an incoming request.
type GeoResolver interface {
	Resolve(r *http.Request) Location
}

// HeaderResolver reads geolocation from X-Geo-* headers stamped by a trusted
// edge proxy (CDN or load balancer). Requests from private or loopback
// addresses resolve empty regardless of headers: an edge never forwards
// those, so their presence means the header was forged.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) Location {
	if isPrivateIP(clientIP(r)) {
		return Location{}
	}

	loc := Location{
		Country: r.Header.Get("X-Geo-Country"),
		Region:  r.Header.Get("X-Geo-Region"),
		City:    r.Header.Get("X-Geo-City"),
	}
	if lat, err := strconv.ParseFloat(r.Header.Get("X-Geo-Lat"), 64); err == nil {
		loc.Latitude = lat
	}
	if lon, err := strconv.ParseFloat(r.Header.Get("X-Geo-Lon"), 64); err == nil {
		loc.Longitude = lon
	}
	return loc
}

// NoopResolver resolves every request to an empty location. Used when no
// trusted edge is configured.
type NoopResolver struct{}

func (NoopResolver) Resolve(*http.Request) Location { return Location{} }

// StaticResolver maps source IPs to fixed locations. Test use.
type StaticResolver map[string]Location

func (s StaticResolver) Resolve(r *http.Request) Location {
	return s[clientIP(r)]
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}
