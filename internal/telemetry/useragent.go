package telemetry

import "strings"

// UserAgent is the coarse browser and OS family of a client.
type UserAgent struct {
	Browser string
	OS      string
}

type uaRule struct {
	name    string
	needles []string
}

// Ordered so that more specific tokens win: Edge and Opera UAs also carry
// "Chrome/", Chrome UAs carry "Safari/", Android UAs carry "Linux" and iOS
// UAs carry "Mac OS X".
var (
	browserRules = []uaRule{
		{"Edge", []string{"Edg/"}},
		{"Opera", []string{"OPR/"}},
		{"Chrome", []string{"Chrome/"}},
		{"Firefox", []string{"Firefox/"}},
		{"Safari", []string{"Safari/"}},
	}
	osRules = []uaRule{
		{"Windows", []string{"Windows NT"}},
		{"iOS", []string{"iPhone", "iPad"}},
		{"Android", []string{"Android"}},
		{"macOS", []string{"Mac OS X"}},
		{"Linux", []string{"Linux"}},
	}
)

// ParseUserAgent classifies a User-Agent header. Unrecognised values yield
// "unknown".
func ParseUserAgent(ua string) UserAgent {
	return UserAgent{Browser: match(ua, browserRules), OS: match(ua, osRules)}
}

func match(ua string, rules []uaRule) string {
	if ua == "" {
		return "unknown"
	}
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(ua, n) {
				return r.name
			}
		}
	}
	return "unknown"
}
