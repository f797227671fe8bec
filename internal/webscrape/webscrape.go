// Copyright 2026 The pvcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package webscrape extracts hyperlinks from an HTML document, used by the
// archive- and repository-suggestion engines to scan release/index pages
// for candidate upstream URLs.
package webscrape

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// DefaultUserAgent is sent on every scrape request; some upstream hosts
// reject requests with no User-Agent header at all.
const DefaultUserAgent = "pvcheck/1.0 (+provenance validation)"

// ExtractLinks walks the parsed document rooted at doc and resolves every
// <a href> against base, returning the resolved absolute URLs in document
// order.
func ExtractLinks(base *url.URL, body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parsing HTML")
	}
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || attr.Val == "" {
					continue
				}
				if href, err := url.Parse(attr.Val); err == nil {
					links = append(links, base.ResolveReference(href).String())
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// FetchLinks issues a GET against pageURL and returns every resolved link
// found on the page.
func FetchLinks(client *http.Client, pageURL string) ([]string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing page URL")
	}
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", pageURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s: unexpected HTTP status %s", pageURL, resp.Status)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return ExtractLinks(u, buf.Bytes())
}

// ExtractRepologyRepoLinks parses a Repology project-information page and
// returns the hrefs listed under its "Repository_links" section, in
// document order. Returns an empty slice, not an error, when the section
// is absent.
func ExtractRepologyRepoLinks(body io.Reader) ([]string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, errors.Wrap(err, "parsing HTML")
	}

	var section *html.Node
	var findSection func(*html.Node)
	findSection = func(n *html.Node) {
		if section != nil {
			return
		}
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "id" && attr.Val == "Repository_links" {
					section = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findSection(c)
		}
	}
	findSection(doc)
	if section == nil {
		return nil, nil
	}

	// Find the next <ul> in document order after the section marker.
	var ul *html.Node
	var findUL func(*html.Node, *bool) *html.Node
	passed := false
	findUL = func(n *html.Node, started *bool) *html.Node {
		if n == section {
			*started = true
		}
		if *started && n.Type == html.ElementNode && n.Data == "ul" && n != section {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := findUL(c, started); found != nil {
				return found
			}
		}
		return nil
	}
	ul = findUL(doc, &passed)
	if ul == nil {
		return nil, nil
	}

	var links []string
	var walkLi func(*html.Node)
	walkLi = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkLi(c)
		}
	}
	walkLi(ul)
	return links, nil
}
