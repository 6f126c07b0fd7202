package highlight

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

type Highlighter interface {
	Supports(language string) bool
	Render(code, language string) (string, error)
}

// Render uses h when it supports language and falls back to Plain otherwise,
// including when h fails.
func Render(h Highlighter, code, language string) string {
	if h == nil || !h.Supports(language) {
		return Plain(code)
	}
	markup, err := h.Render(code, language)
	if err != nil {
		return Plain(code)
	}
	return markup
}

func Plain(code string) string {
	return "<pre><code>" + html.EscapeString(code) + "</code></pre>"
}

type Chroma struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func NewChroma(styleName string) *Chroma {
	return &Chroma{
		style:     styles.Get(strings.TrimSpace(styleName)),
		formatter: chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(2)),
	}
}

func (c *Chroma) Supports(language string) bool {
	return lexers.Get(language) != nil
}

func (c *Chroma) Render(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		return "", fmt.Errorf("no lexer for language %q", language)
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", language, err)
	}
	var buf bytes.Buffer
	if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", language, err)
	}
	return buf.String(), nil
}
