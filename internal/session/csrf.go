package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/andjpython/Estacionamento-Free/internal/transport"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// csrfMetaName is the meta tag the landing page carries its token in.
const csrfMetaName = "csrf-token"

// csrfCache holds the process-wide anti-forgery token. A configured token
// wins; otherwise the landing page is fetched once and its meta tag cached.
// A page without the tag is remembered so it is not fetched again; a failed
// fetch is not.
type csrfCache struct {
	mu       sync.Mutex
	token    string
	resolved bool
}

func newCSRFCache(configured string) *csrfCache {
	c := &csrfCache{}
	if configured != "" {
		c.token = configured
		c.resolved = true
	}
	return c
}

func (c *csrfCache) set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.resolved = true
}

func (c *csrfCache) get(ctx context.Context, f Fetcher) (string, error) {
	c.mu.Lock()
	if c.resolved {
		defer c.mu.Unlock()
		return c.token, nil
	}
	c.mu.Unlock()

	resp, err := f.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   model.LandingRoute,
		Header: http.Header{"Accept": {"text/html"}},
	})
	if err != nil {
		return "", fmt.Errorf("fetch landing page: %w", err)
	}
	if !resp.OK() {
		return "", &transport.StatusError{StatusCode: resp.StatusCode}
	}
	token, err := findMetaContent(resp.Body, csrfMetaName)
	if err != nil {
		return "", err
	}
	c.set(token)
	return token, nil
}

// findMetaContent returns the content of <meta name="name">, or "" when the
// document has no such tag.
func findMetaContent(doc []byte, name string) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse landing page: %w", err)
	}
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var metaName, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "name":
					metaName = a.Val
				case "content":
					content = a.Val
				}
			}
			if strings.EqualFold(metaName, name) {
				return content
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if v := walk(child); v != "" {
				return v
			}
		}
		return ""
	}
	return walk(root), nil
}
