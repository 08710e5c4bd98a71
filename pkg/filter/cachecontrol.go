package filter

import (
	"net/http"
	"strconv"
	"strings"
)

// directives is a parsed Cache-Control header. Names are lower case;
// directives without an argument map to "".
type directives map[string]string

func parseCacheControl(h http.Header) directives {
	d := make(directives)
	for _, line := range h.Values("Cache-Control") {
		for part := range strings.SplitSeq(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, arg, _ := strings.Cut(part, "=")
			d[strings.ToLower(strings.TrimSpace(name))] = strings.Trim(strings.TrimSpace(arg), `"`)
		}
	}
	return d
}

func (d directives) has(name string) bool {
	_, ok := d[name]
	return ok
}

// seconds returns the delta-seconds argument of name. Malformed or
// negative values are reported as absent.
func (d directives) seconds(name string) (int64, bool) {
	arg, ok := d[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseVary returns the canonical request header names listed in Vary.
// A "*" entry is kept as is.
func parseVary(h http.Header) []string {
	var names []string
	for _, line := range h.Values("Vary") {
		for part := range strings.SplitSeq(line, ",") {
			part = strings.TrimSpace(part)
			switch part {
			case "":
			case "*":
				names = append(names, part)
			default:
				names = append(names, http.CanonicalHeaderKey(part))
			}
		}
	}
	return names
}
