package cli

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// SyntaxHighlighter colors SQL for terminal output
type SyntaxHighlighter struct {
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
	enabled   bool
}

// NewSyntaxHighlighter creates a highlighter using the style from config
func NewSyntaxHighlighter(config *Config) *SyntaxHighlighter {
	if config == nil {
		config = DefaultConfig()
	}

	lexer := lexers.Get("mysql")
	if lexer == nil {
		lexer = lexers.Get("sql")
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Get("terminal256")
	}
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &SyntaxHighlighter{
		lexer:     lexer,
		formatter: formatter,
		style:     CreateStyleFromConfig(config),
		enabled:   config.Highlight,
	}
}

// Enabled reports whether HighlightSQL adds color
func (sh *SyntaxHighlighter) Enabled() bool {
	return sh != nil && sh.enabled
}

// SetEnabled toggles highlighting
func (sh *SyntaxHighlighter) SetEnabled(on bool) {
	sh.enabled = on
}

// SetStyle rebuilds the color style from config
func (sh *SyntaxHighlighter) SetStyle(config *Config) {
	sh.style = CreateStyleFromConfig(config)
}

// HighlightSQL applies syntax highlighting to SQL text. The input is
// returned unchanged when highlighting is off or tokenizing fails.
func (sh *SyntaxHighlighter) HighlightSQL(sql string) string {
	if !sh.Enabled() || sh.lexer == nil {
		return sql
	}

	iterator, err := sh.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var buf strings.Builder
	if err := sh.formatter.Format(&buf, sh.style, iterator); err != nil {
		return sql
	}
	return buf.String()
}

// StyleNames lists the chroma styles accepted by \style
func StyleNames() []string {
	return append(styles.Names(), "smooth")
}
