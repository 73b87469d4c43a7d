package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// dashboardCSP allows the inline styles of the dashboard page and the
// same-origin chart images and websocket.
const dashboardCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; connect-src 'self' ws: wss:"

// SecurityHeaders sets the OWASP response headers. HSTS is only sent on
// TLS requests and never in development.
func SecurityHeaders(development bool) func(next http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: dashboardCSP,
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         development,
	})
	return sm.Handler
}
