package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ParseSubnet parses a CIDR. An empty string yields a nil network, which
// trusts nobody.
func ParseSubnet(cidr string) (*net.IPNet, error) {
	cidr = strings.TrimSpace(cidr)
	if cidr == "" {
		return nil, nil
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	return network, nil
}

// Trusted reports whether ip is inside network.
func Trusted(network *net.IPNet, ip string) bool {
	if network == nil {
		return false
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	return parsed != nil && network.Contains(parsed)
}

// WithSubnet lets a request through only when its X-Real-IP header is
// inside network.
func WithSubnet(network *net.IPNet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Trusted(network, r.Header.Get("X-Real-IP")) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
