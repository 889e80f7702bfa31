package utils

import (
	"net/http"
	"strings"
)

// GetIP returns the IP address of the client from the request.
func GetIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// First address is the originating client.
		if i := strings.IndexByte(ip, ','); i >= 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	return r.RemoteAddr
}
