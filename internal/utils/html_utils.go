package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceImages adds lazy loading and referrer attributes to every <img> in an
// HTML fragment. Fragments without images are returned untouched.
func EnhanceImages(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	// goquery renders full document tags if missing, we just want the body content
	out, err := doc.Find("body").Html()
	if err != nil || out == "" {
		return fragment
	}
	return out
}
