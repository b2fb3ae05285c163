package filestore

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Archive stores raw page bodies fetched during a knowledge base build.
type Archive struct {
	store Store
}

func NewArchive(store Store) *Archive {
	if store == nil {
		return nil
	}
	return &Archive{store: store}
}

// PageKey flattens a page URL and build time into a single path segment,
// e.g. 20260102T030405Z-www.eac.int_overview.html.
func PageKey(pageURL string, at time.Time) string {
	name := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		name = u.Host + u.Path
		if u.RawQuery != "" {
			name += "_" + u.RawQuery
		}
	}
	name = strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ReplaceAll(name, "/", "_"), "_"), "_.")
	if name == "" {
		name = "page"
	}
	return at.UTC().Format("20060102T150405Z") + "-" + name + ".html"
}

func (a *Archive) SavePage(ctx context.Context, pageURL string, at time.Time, body []byte) (string, error) {
	key := PageKey(pageURL, at)
	if err := a.store.Save(ctx, key, nopCloser{bytes.NewReader(body)}, int64(len(body))); err != nil {
		return "", err
	}
	return key, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
