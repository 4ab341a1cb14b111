// Package metadata extracts client metadata (IP, User-Agent) into the request
// context so services and audit events can reference it without touching
// net/http types.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"idlink/pkg/requestcontext"
)

// Middleware parses the client IP and User-Agent header and stores a compact
// summary in the context. Run after a real-IP middleware so RemoteAddr holds
// the effective client address.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		summary := summarizeUserAgent(r.UserAgent())
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// summarizeUserAgent reduces a raw User-Agent header to "Browser/Version (OS)"
// for audit events. Raw headers are too noisy and too identifying to store.
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString("/")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" (")
		b.WriteString(os)
		b.WriteString(")")
	}
	return b.String()
}
