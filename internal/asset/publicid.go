package asset

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// PublicIDFromURL recovers the image host's public id from a delivery URL.
// The id is every path segment after the version segment (v<digits>), with
// the file extension removed:
//
//	https://res.cloudinary.com/demo/image/upload/v1712/alumni/abc123.jpg -> alumni/abc123
func PublicIDFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" {
		return "", fmt.Errorf("%w: %q", ErrUnparsableURL, raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	version := -1
	for i, part := range parts {
		if isVersionSegment(part) {
			version = i
			break
		}
	}
	if version < 0 || version == len(parts)-1 {
		return "", fmt.Errorf("%w: %q", ErrUnparsableURL, raw)
	}

	rest := parts[version+1:]
	last := rest[len(rest)-1]
	rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))

	id := strings.Join(rest, "/")
	if id == "" || strings.HasSuffix(id, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnparsableURL, raw)
	}
	return id, nil
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
