package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"gopkg.in/ini.v1"
)

const rcFileName = ".go-sqladvisorrc"

// Config holds the user settings read from ~/.go-sqladvisorrc
type Config struct {
	Style           string
	UseCustomColors bool
	Highlight       bool
	OutputFormat    string
	RegistryFile    string
	StorePath       string
	LogLevel        string
	Colors          map[string]string

	path string
}

// DefaultConfig returns the settings used when no rc file exists
func DefaultConfig() *Config {
	return &Config{
		Style:           "monokai",
		UseCustomColors: false,
		Highlight:       true,
		OutputFormat:    "text",
		StorePath:       "~/.go-sqladvisor/workspace.db",
		LogLevel:        "warn",
		Colors:          DefaultColors(),
	}
}

// DefaultColors returns the default color scheme
func DefaultColors() map[string]string {
	return map[string]string{
		"keyword":     "#66D9EF",
		"name":        "#A6E22E",
		"builtin":     "#FD971F",
		"string":      "#E6DB74",
		"number":      "#AE81FF",
		"operator":    "#F92672",
		"comment":     "#75715E",
		"punctuation": "#F8F8F2",
	}
}

// ConfigPath resolves the rc file: $GO_SQLADVISOR_RC, then ./.go-sqladvisorrc,
// then ~/.go-sqladvisorrc
func ConfigPath() string {
	if envPath := os.Getenv("GO_SQLADVISOR_RC"); envPath != "" {
		return envPath
	}
	if wd, err := os.Getwd(); err == nil {
		local := filepath.Join(wd, rcFileName)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, rcFileName)
}

// LoadConfig reads the rc file found by ConfigPath
func LoadConfig() *Config {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads settings from path. A missing or unreadable file
// yields the defaults.
func LoadConfigFrom(path string) *Config {
	config := DefaultConfig()
	config.path = path
	if path == "" {
		return config
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config
	}

	// values may start with '#'
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return config
	}

	customColorsKeySet := false
	if cfg.HasSection("main") {
		main := cfg.Section("main")
		config.Style = main.Key("syntax_style").MustString(config.Style)
		if main.HasKey("use_custom_colors") {
			if val, err := main.Key("use_custom_colors").Bool(); err == nil {
				config.UseCustomColors = val
				customColorsKeySet = true
			}
		}
		config.Highlight = main.Key("highlight").MustBool(config.Highlight)
		config.OutputFormat = strings.ToLower(main.Key("output_format").MustString(config.OutputFormat))
		config.RegistryFile = sanitizeValue(main.Key("registry_file").MustString(config.RegistryFile))
		config.StorePath = sanitizeValue(main.Key("store_path").MustString(config.StorePath))
		config.LogLevel = sanitizeValue(main.Key("log_level").MustString(config.LogLevel))
	}

	if cfg.HasSection("colors") {
		for _, key := range cfg.Section("colors").Keys() {
			val := sanitizeValue(key.String())
			if val == "" {
				continue
			}
			if strings.HasPrefix(val, "#") && len(val) == 7 {
				val = strings.ToUpper(val)
			}
			config.Colors[key.Name()] = val
		}
	} else if !customColorsKeySet {
		// no colors configured, respect the style selection
		config.UseCustomColors = false
		config.Colors = map[string]string{}
	}

	return config
}

// Path is the file this config was loaded from and saves back to
func (c *Config) Path() string {
	return c.path
}

// SaveDefaultConfig writes a commented default rc file unless one exists
func SaveDefaultConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	path := filepath.Join(home, rcFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	config := DefaultConfig()
	config.path = path
	return SaveConfig(config)
}

// SaveConfig writes config back to its rc file
func SaveConfig(config *Config) error {
	path := config.path
	if path == "" {
		path = ConfigPath()
	}
	if path == "" {
		return fmt.Errorf("failed to resolve config path")
	}

	cfg := ini.Empty()
	main, _ := cfg.NewSection("main")
	main.NewKey("syntax_style", config.Style)
	main.NewKey("use_custom_colors", fmt.Sprintf("%v", config.UseCustomColors))
	main.NewKey("highlight", fmt.Sprintf("%v", config.Highlight))
	main.NewKey("output_format", config.OutputFormat)
	main.NewKey("registry_file", config.RegistryFile)
	main.NewKey("store_path", config.StorePath)
	main.NewKey("log_level", config.LogLevel)
	main.Comment = "# syntax_style: any chroma style (monokai, dracula, native, vim) or smooth\n" +
		"# output_format: text or json\n" +
		"# registry_file: table index definitions loaded at startup (.ini, .yaml, .json, optionally .zst)\n" +
		"# store_path: bolt file holding the saved workspace and analysis history"

	colors, _ := cfg.NewSection("colors")
	for k, v := range config.Colors {
		colors.NewKey(k, v)
	}
	colors.Comment = "# Custom colors for SQL tokens (hex format: #RRGGBB)"

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// tokenGroups maps rc color keys to the chroma token types they paint
var tokenGroups = map[string][]chroma.TokenType{
	"keyword": {chroma.Keyword, chroma.KeywordConstant, chroma.KeywordDeclaration,
		chroma.KeywordNamespace, chroma.KeywordPseudo, chroma.KeywordReserved, chroma.KeywordType},
	"name": {chroma.Name, chroma.NameAttribute, chroma.NameClass, chroma.NameConstant,
		chroma.NameEntity, chroma.NameLabel, chroma.NameNamespace, chroma.NameOther, chroma.NameVariable},
	"builtin": {chroma.NameBuiltin, chroma.NameBuiltinPseudo, chroma.NameFunction},
	"string": {chroma.LiteralString, chroma.LiteralStringBacktick, chroma.LiteralStringChar,
		chroma.LiteralStringDouble, chroma.LiteralStringEscape, chroma.LiteralStringSingle},
	"number": {chroma.LiteralNumber, chroma.LiteralNumberFloat, chroma.LiteralNumberHex,
		chroma.LiteralNumberInteger},
	"operator":    {chroma.Operator, chroma.OperatorWord},
	"comment":     {chroma.Comment, chroma.CommentMultiline, chroma.CommentSingle},
	"punctuation": {chroma.Punctuation},
}

// CreateStyleFromConfig builds the chroma style for highlighting
func CreateStyleFromConfig(config *Config) *chroma.Style {
	if config == nil {
		config = DefaultConfig()
	}

	base := resolveBaseStyle(config.Style)
	if !config.UseCustomColors || len(config.Colors) == 0 {
		return base
	}

	entries := chroma.StyleEntries{}
	for name, color := range config.Colors {
		for _, tt := range tokenGroups[strings.ToLower(name)] {
			entries[tt] = color
		}
	}
	entries[chroma.Text] = ""
	entries[chroma.TextWhitespace] = ""

	style, err := chroma.NewStyle("go-sqladvisor-custom", entries)
	if err != nil {
		return base
	}
	return style
}

func resolveBaseStyle(name string) *chroma.Style {
	if strings.EqualFold(name, "smooth") {
		return smoothStyle()
	}
	if name != "" {
		if style, ok := styles.Registry[strings.ToLower(name)]; ok {
			return style
		}
	}
	return styles.Get("monokai")
}

func smoothStyle() *chroma.Style {
	style, err := chroma.NewStyle("smooth-night", chroma.StyleEntries{
		chroma.Background:    "bg:#0b1220",
		chroma.Text:          "#c4d0f4",
		chroma.Keyword:       "#9ac4ff bold",
		chroma.Name:          "#a8f5ff",
		chroma.NameBuiltin:   "#7de2d1",
		chroma.LiteralString: "#f9e2af",
		chroma.LiteralNumber: "#f4b5ff",
		chroma.Operator:      "#f7768e",
		chroma.Comment:       "italic #51617d",
		chroma.Punctuation:   "#c4d0f4",
	})
	if err != nil {
		return styles.Get("monokai")
	}
	return style
}

// sanitizeValue drops trailing inline comments, which IgnoreInlineComment keeps
func sanitizeValue(raw string) string {
	raw = strings.TrimSpace(raw)
	for i := 1; i < len(raw); i++ {
		if (raw[i] == ';' || raw[i] == '#') && (raw[i-1] == ' ' || raw[i-1] == '\t') {
			return strings.TrimSpace(raw[:i])
		}
	}
	return raw
}
