package card

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// feedLinkSelector matches the usual ways a store page advertises its
// feed: alternate <link> declarations and plain anchors to .xml files.
var feedLinkSelector = cascadia.MustCompile(
	`link[type="application/rss+xml"], link[type="application/atom+xml"], link[type="text/xml"], a[href$=".xml"]`)

// DiscoverFeedURLs scans an HTML document for likely feed URLs, resolved
// against base. Used when a relay hands back a store page instead of the
// feed itself; order follows document order, duplicates removed.
func DiscoverFeedURLs(doc, base string) []string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	baseURL, _ := url.Parse(base)

	var out []string
	seen := map[string]bool{}
	for _, n := range cascadia.QueryAll(root, feedLinkSelector) {
		href := strings.TrimSpace(nodeAttr(n, "href"))
		if href == "" {
			continue
		}
		if baseURL != nil {
			if ref, err := url.Parse(href); err == nil {
				href = baseURL.ResolveReference(ref).String()
			}
		}
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			continue
		}
		if !seen[href] {
			seen[href] = true
			out = append(out, href)
		}
	}
	return out
}

func nodeAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
