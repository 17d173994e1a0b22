package realtime

import (
	"strings"

	"github.com/mssola/useragent"
)

// deviceLabel turns a raw User-Agent into a short human-readable label for
// connection logs ("Chrome on Linux"). Never fails; unknown agents get a
// generic label.
func deviceLabel(rawUserAgent string) string {
	if strings.TrimSpace(rawUserAgent) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUserAgent)
	name, _ := ua.Browser()

	parts := make([]string, 0, 3)
	if name != "" {
		parts = append(parts, name)
	}
	if osInfo := ua.OSInfo(); osInfo.Name != "" {
		parts = append(parts, "on", osInfo.Name)
	}
	if len(parts) == 0 {
		return "Unknown Device"
	}
	return strings.Join(parts, " ")
}
