package fetch

import (
	"net/url"
	"strings"
)

// EscapeDOI escapes each path segment of a DOI for use in a URL path,
// keeping the prefix/suffix slash intact. Characters such as '#' and '?'
// stay part of the DOI instead of starting a fragment or query.
func EscapeDOI(doi string) string {
	segments := strings.Split(doi, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
