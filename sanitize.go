package paygate

import (
	"net/http"
	"strings"

	"github.com/tachi-labs/paygate/schema"
)

var dangerousPrefixes = []string{"javascript:", "data:", "vbscript:"}

// SanitizeHeaders returns bounded, injection-free copies of the headers the gateway inspects.
func SanitizeHeaders(h http.Header) schema.SanitizedHeaders {
	return schema.SanitizedHeaders{
		UserAgent:     sanitizeValue(h.Get("User-Agent"), schema.MaxUserAgentLen),
		Authorization: sanitizeValue(h.Get("Authorization"), schema.MaxAuthorizationLen),
		Origin:        sanitizeValue(h.Get("Origin"), schema.MaxOriginLen),
		Referer:       sanitizeValue(h.Get("Referer"), schema.MaxRefererLen),
	}
}

func sanitizeValue(v string, maxLen int) string {
	if len(v) > maxLen {
		v = v[:maxLen]
	}
	v = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, v)
	v = strings.TrimSpace(v)

	for stripped := true; stripped; {
		stripped = false
		lower := strings.ToLower(v)
		for _, p := range dangerousPrefixes {
			if strings.HasPrefix(lower, p) {
				v = strings.TrimSpace(v[len(p):])
				stripped = true
				break
			}
		}
	}
	return v
}
