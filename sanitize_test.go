package paygate

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("User-Agent", "  GPTBot/1.0 <script>\x00\x1f ")
	h.Set("Authorization", "Bearer 0xabc")
	h.Set("Origin", "JavaScript:javascript: data:alert(1)")
	h.Set("Referer", `https://example.com/?q="a"&b='c'`)

	res := SanitizeHeaders(h)
	assert.Equal(t, "GPTBot/1.0 script", res.UserAgent)
	assert.Equal(t, "Bearer 0xabc", res.Authorization)
	assert.Equal(t, "alert(1)", res.Origin)
	assert.Equal(t, "https://example.com/?q=ab=c", res.Referer)
}

func TestSanitizeHeaders_Absent(t *testing.T) {
	res := SanitizeHeaders(http.Header{})
	assert.Empty(t, res.UserAgent)
	assert.Empty(t, res.Authorization)
	assert.Empty(t, res.Origin)
	assert.Empty(t, res.Referer)
}

func TestSanitizeHeaders_Truncate(t *testing.T) {
	h := http.Header{}
	h.Set("User-Agent", strings.Repeat("a", 2000))
	h.Set("Authorization", "Bearer "+strings.Repeat("f", 1000))

	res := SanitizeHeaders(h)
	assert.Len(t, res.UserAgent, 512)
	assert.Len(t, res.Authorization, 256)
}
