package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var (
	// Logged as a warning, never blocked: every statement in the repos is
	// parameterized, so a match here is recon, not a working injection.
	sqlPattern = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	// Blocked outright: script payloads have no legitimate place in a
	// clinical data API.
	scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection, or script payloads with a 400. See SanitizeWithLogger for the
// SQL pattern warning.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger is Sanitize with a logger attached for the
// non-blocking SQL injection pattern warnings.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if reason := inspectPath(req.URL.Path, req.URL.RawPath); reason != "" {
				return rejectRequest(c, reason)
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return rejectRequest(c, "header value exceeds maximum size: "+name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return rejectRequest(c, "header injection detected: "+name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				if hasNullByte(key) || scriptPattern.MatchString(key) {
					return rejectRequest(c, "malicious query parameter name")
				}
				for _, v := range values {
					if hasNullByte(v) {
						return rejectRequest(c, "null byte in query parameter")
					}
					if scriptPattern.MatchString(v) {
						return rejectRequest(c, "script injection in query parameter")
					}
					if sqlPattern.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", req.URL.Path).
							Str("remote_ip", c.RealIP()).
							Msg("potential SQL injection pattern in query parameter")
					}
				}
			}

			return next(c)
		}
	}
}

// inspectPath flags traversal sequences and null bytes in either the decoded
// or the raw request path. Empty string means clean.
func inspectPath(path, rawPath string) string {
	if rawPath == "" {
		rawPath = path
	}
	for _, p := range [...]string{path, rawPath} {
		if hasTraversal(p) {
			return "path traversal detected"
		}
		if hasNullByte(p) {
			return "null byte in path"
		}
	}
	return ""
}

// hasTraversal matches "..", its percent-encoding, and the double-encoded
// form attackers use to slip past a single decode pass.
func hasTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}

func rejectRequest(c echo.Context, reason string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": reason})
}

// SanitizeString strips null bytes and control characters (keeping \n, \r,
// \t) and trims surrounding whitespace. Handlers apply it to free-text
// fields such as dataset descriptions before they are stored.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\x00' {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
