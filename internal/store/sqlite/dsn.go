package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	scheme   = "sqlite://"
	inMemory = ":memory:"
)

// parseDSN turns a sqlite:// URL into a path the driver accepts. Relative
// paths are anchored to the working directory with a ./ prefix and any
// query string is handed to the driver untouched.
func parseDSN(dsn string) (string, error) {
	rest, ok := strings.CutPrefix(dsn, scheme)
	if !ok {
		return "", fmt.Errorf("invalid sqlite DSN %q, expected %s", dsn, scheme)
	}
	if rest == inMemory {
		return inMemory, nil
	}

	path, query, _ := strings.Cut(rest, "?")
	path, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping sqlite path: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("sqlite DSN %q has no path", dsn)
	}
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}

	if query != "" {
		return path + "?" + query, nil
	}
	return path, nil
}
