package utils

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts user content to sanitized HTML. A nil or empty
// source renders to "".
func RenderMarkdown(source *string) string {
	if source == nil || *source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(*source), &buf); err != nil {
		return policy.Sanitize(*source)
	}

	sanitized := policy.SanitizeBytes(buf.Bytes())
	return EnhanceImages(string(sanitized))
}
