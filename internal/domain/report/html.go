package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in student names is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// HTML renders the report as an HTML fragment for e-mail bodies.
// POST: returns the goldmark conversion of Markdown(policy)
func (r Report) HTML(policy EmptySections) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(r.Markdown(policy)), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}
