package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"technovit/pkg/requestcontext"
)

// ClientMetadata extracts client IP address, User-Agent and a device label from
// the request and adds them to the context for audit records.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithDevice(ctx, DeviceFromUserAgent(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceFromUserAgent renders a short "Browser on OS" label, e.g.
// "Chrome on Android (mobile)". Unparseable agents yield "unknown".
func DeviceFromUserAgent(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return "unknown"
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		return "bot"
	}
	browser, _ := parsed.Browser()
	os := parsed.OSInfo().Name
	var label string
	switch {
	case browser != "" && os != "":
		label = browser + " on " + os
	case browser != "":
		label = browser
	case os != "":
		label = os
	default:
		return "unknown"
	}
	if parsed.Mobile() {
		label += " (mobile)"
	}
	return label
}

// ClientIPFromRequest extracts the real client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
