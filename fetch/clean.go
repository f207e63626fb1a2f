// Copyright 2025 Poiesic Systems
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

package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// containerSelectors lists the main-content containers in preference order.
var containerSelectors = []string{"article", "main", "[role=main]"}

// Page is the cleaned form of a fetched document.
type Page struct {
	Title string
	Text  string
}

// Clean extracts paragraph text from html. The first content container that
// holds paragraphs wins; without one the whole document is used. Each
// paragraph is whitespace-normalized, empties are dropped, and the rest are
// joined with a blank line.
func Clean(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, err
	}

	root := doc.Selection
	for _, sel := range containerSelectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() > 0 && candidate.Find("p").Length() > 0 {
			root = candidate
			break
		}
	}

	var blocks []string
	root.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			blocks = append(blocks, text)
		}
	})

	return Page{
		Title: pageTitle(html, doc),
		Text:  strings.Join(blocks, "\n\n"),
	}, nil
}

// pageTitle prefers og:title and falls back to the title element.
func pageTitle(html string, doc *goquery.Document) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(html)); err == nil && og.Title != "" {
		return strings.TrimSpace(og.Title)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
