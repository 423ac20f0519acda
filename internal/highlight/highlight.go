// Package highlight renders generated code as syntax-highlighted HTML for
// the review stage.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// HTML highlights code for the given language and returns an HTML fragment
// with inline styles and line numbers. Unknown languages fall back to
// content analysis, then to plain text.
func HTML(code, language string) (string, error) {
	lexer := lexers.Get(strings.ToLower(language))
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	formatter := html.New(html.WithLineNumbers(true), html.TabWidth(4))
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}
