package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/JonMunkholm/asistencia/internal/logging"
)

// attackPatterns are matched against the decoded, lower-cased path and raw
// query. They target probes seen against public kiosks, not general input
// validation; handlers still validate every value they use.
var attackPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"path_traversal", regexp.MustCompile(`\.\./|\.\.\\|%2e%2e|/etc/passwd|c:\\windows`)},
	{"sql_injection", regexp.MustCompile(`'\s*(or|and)\s+['\d]|union(\s|\+)+select|;\s*(drop|delete|insert|update)\s|--\s*$|/\*.*\*/|\bsleep\s*\(`)},
	{"script_injection", regexp.MustCompile(`<\s*script|javascript:|on(error|load)\s*=|<\s*iframe`)},
	{"null_byte", regexp.MustCompile(`\x00|%00`)},
}

// AttackGuard rejects requests whose path or query matches a known attack
// pattern with 400. Each rejection is logged at warn level with the pattern
// name so it shows up next to the audit trail.
func AttackGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name, ok := MatchAttack(r.URL); ok {
			logging.FromContext(r.Context()).Warn("attack guard: request rejected",
				"pattern", name,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MatchAttack returns the name of the first pattern u matches.
func MatchAttack(u *url.URL) (string, bool) {
	raw := strings.ToLower(u.RawQuery)
	query, err := url.QueryUnescape(raw)
	if err != nil {
		query = raw
	}
	targets := []string{strings.ToLower(u.Path), strings.ToLower(u.EscapedPath()), raw, query}

	for _, p := range attackPatterns {
		for _, t := range targets {
			if t != "" && p.re.MatchString(t) {
				return p.name, true
			}
		}
	}
	return "", false
}
