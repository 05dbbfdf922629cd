package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/dlclark/regexp2"

	"go-sqladvisor/pkg/analyzer"
	"go-sqladvisor/pkg/registry"
)

const historyLimit = 20

type PromptExecutor struct {
	*Session
	buffer         string
	nonInteractive bool // true when reading from pipe/file
	sourceFileMode bool // true when running a \. script
	quit           bool
}

// NewPromptExecutor creates an executor over session
func NewPromptExecutor(s *Session) *PromptExecutor {
	return &PromptExecutor{Session: s}
}

// Executor handles one line of input: a backslash command, or SQL that
// is buffered until a terminating semicolon
func (p *PromptExecutor) Executor(in string) {
	in = strings.TrimSpace(in)
	if in == "" {
		return
	}

	if strings.HasPrefix(in, "\\") {
		p.command(in)
		return
	}

	switch strings.ToLower(in) {
	case "exit", "quit", "bye":
		p.exit()
		return
	}
	if strings.HasPrefix(strings.ToLower(in), "source ") {
		p.sourceFile(strings.TrimSpace(in[7:]))
		return
	}

	p.buffer += in + "\n"
	for strings.Contains(p.buffer, ";") {
		parts := strings.SplitN(p.buffer, ";", 2)
		p.buffer = strings.TrimLeft(parts[1], " \t\n")
		if sql := strings.TrimSpace(parts[0]); sql != "" {
			p.runStatement(sql)
		}
	}
}

func (p *PromptExecutor) command(in string) {
	name, arg, _ := strings.Cut(in, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "\\q", "\\quit":
		p.exit()
	case "\\c", "\\clear":
		p.buffer = ""
	case "\\h", "\\help", "\\?":
		p.printHelp()
	case "\\p", "\\print":
		p.printCurrentCommand()
	case "\\g", "\\go":
		if sql := strings.TrimSpace(p.buffer); sql != "" {
			p.buffer = ""
			p.runStatement(sql)
		}
	case "\\t", "\\table":
		p.addTable(arg)
	case "\\tables":
		p.check(RenderTables(p.Out, p.Workspace.Tables()))
	case "\\drop":
		if arg == "" {
			p.printf("Usage: \\drop <table>\n")
		} else if p.Workspace.Remove(arg) {
			p.printf("Removed table %s\n", arg)
		} else {
			p.printf("No table named %s\n", arg)
		}
	case "\\demo":
		p.Workspace.Replace(registry.Demo())
		p.buffer = strings.TrimSuffix(registry.DemoQuery, ";")
		p.printf("Loaded %d demo tables. Demo query is in the buffer, run it with \\g\n", p.Workspace.Len())
		p.printHighlightedSQL(p.buffer)
	case "\\load":
		p.load(arg)
	case "\\save":
		p.save(arg)
	case "\\format":
		sql := arg
		if sql == "" {
			sql = p.buffer
		}
		if strings.TrimSpace(sql) == "" {
			p.printf("Nothing to format\n")
			return
		}
		p.printf("%s\n", p.Highlighter.HighlightSQL(FormatSQL(sql)))
	case "\\json":
		on, err := parseToggle(arg, strings.EqualFold(p.Format, "json"))
		if err != nil {
			p.printf("%v\n", err)
			return
		}
		p.Format = "text"
		if on {
			p.Format = "json"
		}
		p.Config.OutputFormat = p.Format
		p.persistConfig()
		p.printf("JSON output %s\n", onOff(on))
	case "\\highlight":
		on, err := parseToggle(arg, p.Highlighter.Enabled())
		if err != nil {
			p.printf("%v\n", err)
			return
		}
		p.Highlighter.SetEnabled(on)
		p.Config.Highlight = on
		p.persistConfig()
		p.printf("Highlighting %s\n", onOff(on))
	case "\\style":
		p.setStyle(arg)
	case "\\history":
		p.showHistory()
	case "\\config":
		p.showConfig()
	case "\\.":
		p.sourceFile(arg)
	default:
		p.printf("Unknown command: %s\n", in)
	}
}

func (p *PromptExecutor) runStatement(sql string) {
	// echo piped statements like mysql -vvv
	if p.nonInteractive && !p.sourceFileMode {
		p.printf("--------------\n%s\n--------------\n\n", sql)
	} else if !p.nonInteractive && !p.sourceFileMode {
		p.printHighlightedSQL(sql)
	}

	if err := p.AnalyzeSQL(sql); err != nil {
		var aerr *analyzer.AnalysisError
		if errors.As(err, &aerr) && aerr.Kind == analyzer.MalformedInput {
			p.printf("Error: %s\n", aerr.Message)
			return
		}
		p.printf("Error: %v\n", err)
	}
	p.printf("\n")
}

func (p *PromptExecutor) addTable(arg string) {
	table, defs, _ := strings.Cut(arg, " ")
	// definitions typed on one line may separate statements with a literal \n
	defs = strings.ReplaceAll(defs, `\n`, "\n")

	if err := p.Workspace.Add(table, defs); err != nil {
		p.printf("Error: %v\n", err)
		p.printf("Usage: \\t <table> <index definitions>\n")
		return
	}
	p.printf("Added table %s (%d table%s)\n", table, p.Workspace.Len(), plural(p.Workspace.Len()))
}

func (p *PromptExecutor) load(path string) {
	var cards []analyzer.IndexEntry
	var err error
	switch {
	case path != "":
		cards, err = registry.LoadFile(path)
	case p.Store != nil:
		path = p.Store.Path()
		cards, err = p.Store.LoadWorkspace()
	default:
		p.printf("Usage: \\load <file>\n")
		return
	}
	if err != nil {
		p.printf("Error: %v\n", err)
		return
	}
	p.Workspace.Replace(cards)
	p.printf("Loaded %d table%s from %s\n", len(cards), plural(len(cards)), path)
}

func (p *PromptExecutor) save(path string) {
	cards := p.Workspace.Tables()
	var err error
	switch {
	case path != "":
		err = registry.SaveFile(path, cards)
	case p.Store != nil:
		path = p.Store.Path()
		err = p.Store.SaveWorkspace(cards)
	default:
		p.printf("Usage: \\save <file>\n")
		return
	}
	if err != nil {
		p.printf("Error: %v\n", err)
		return
	}
	p.printf("Saved %d table%s to %s\n", len(cards), plural(len(cards)), path)
}

func (p *PromptExecutor) setStyle(name string) {
	if name == "" {
		p.printf("Current style: %s\nAvailable: %s\n", p.Config.Style, strings.Join(StyleNames(), ", "))
		return
	}
	if !containsFold(StyleNames(), name) {
		p.printf("Unknown style %q. Run \\style to list them\n", name)
		return
	}
	p.Config.Style = strings.ToLower(name)
	p.Config.UseCustomColors = false
	p.Highlighter.SetStyle(p.Config)
	p.persistConfig()
	p.printf("Style set to %s\n", p.Config.Style)
}

func (p *PromptExecutor) showHistory() {
	if p.Store == nil {
		p.printf("History is disabled (no store configured)\n")
		return
	}
	records, err := p.Store.History(historyLimit)
	if err != nil {
		p.printf("Error: %v\n", err)
		return
	}
	if len(records) == 0 {
		p.printf("No analyses recorded yet\n")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprint(rec.TotalCost),
			fmt.Sprint(rec.Warnings),
			fmt.Sprint(rec.Recommendations),
			summarize(rec.SQL, 60),
		})
	}
	p.printf("%s\n", formatMySQLTable([]string{"When", "Cost", "Warnings", "Recs", "SQL"}, rows))
}

func (p *PromptExecutor) showConfig() {
	c := p.Config
	p.printf("Style: %s\n", c.Style)
	p.printf("Highlighting: %s\n", onOff(p.Highlighter.Enabled()))
	p.printf("Output format: %s\n", p.Format)
	p.printf("Registry file: %s\n", c.RegistryFile)
	if p.Store != nil {
		p.printf("Store: %s\n", p.Store.Path())
	}
	p.printf("Log level: %s\n", c.LogLevel)
	p.printf("Config file: %s\n", c.Path())
}

// sourceFile analyzes every statement of a script, zstd compressed or not
func (p *PromptExecutor) sourceFile(fileName string) {
	if fileName == "" {
		p.printf("Usage: \\. <file>\n")
		return
	}
	content, err := registry.ReadSource(fileName)
	if err != nil {
		p.printf("Error: %v\n", err)
		return
	}

	old := p.sourceFileMode
	p.sourceFileMode = true
	defer func() { p.sourceFileMode = old }()

	if err := p.RunScript(strings.NewReader(string(content))); err != nil {
		p.printf("Error reading file content: %v\n", err)
	}
}

// RunScript feeds r line by line through Executor and analyzes a trailing
// statement that lacks a semicolon
func (p *PromptExecutor) RunScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() && !p.quit {
		p.Executor(scanner.Text())
	}

	if sql := strings.TrimSpace(p.buffer); sql != "" && !p.quit {
		p.buffer = ""
		p.runStatement(sql)
	}
	return scanner.Err()
}

func (p *PromptExecutor) printHelp() {
	p.printf(`Enter SQL terminated by ; to analyze it against the table index definitions.

\h, \help        Display this help
\q, \quit        Exit
\c, \clear       Clear the current input statement
\p, \print       Print current input statement
\g, \go          Analyze the current input statement
\t <table> <def> Add a table card with its index definitions (use \n between statements)
\tables          List table cards
\drop <table>    Remove a table card
\demo            Load the demo tables and query
\load [file]     Load table cards from a .ini/.yaml/.json file (optionally .zst), or the store
\save [file]     Save table cards to a file, or the store
\format [sql]    Pretty-print SQL (defaults to the current statement)
\json [on|off]   Toggle JSON output
\highlight [on|off] Toggle syntax highlighting
\style [name]     List color styles or switch to one
\history         Show recent analyses
\config          Show current configuration
\. <file>        Analyze every statement in a script. Supports zstd compressed files
`)
}

// printCurrentCommand prints the current command buffer
func (p *PromptExecutor) printCurrentCommand() {
	if p.buffer == "" {
		p.printf("No current command\n")
		return
	}
	p.printf("%s\n", strings.TrimRight(p.buffer, "\n"))
}

// printHighlightedSQL echoes the statement ahead of its analysis (interactive only)
func (p *PromptExecutor) printHighlightedSQL(sql string) {
	p.printf("→ %s\n\n", p.Highlighter.HighlightSQL(sql))
}

func (p *PromptExecutor) persistConfig() {
	if p.Config.Path() == "" {
		return
	}
	if err := SaveConfig(p.Config); err != nil {
		p.Logger.Warn().Err(err).Msg("failed to save config")
	}
}

func (p *PromptExecutor) check(err error) {
	if err != nil {
		p.printf("Error: %v\n", err)
	}
}

func (p *PromptExecutor) printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format, args...)
}

func (p *PromptExecutor) exit() {
	p.printf("Bye\n")
	p.quit = true
}

// ExitChecker stops the prompt loop after \q
func (p *PromptExecutor) ExitChecker(in string, breakline bool) bool {
	return breakline && p.quit
}

// livePrefix returns the current prompt prefix
func (p *PromptExecutor) livePrefix() (string, bool) {
	if p.buffer != "" {
		return "    -> ", true
	}
	n := p.Workspace.Len()
	return fmt.Sprintf("sqladvisor (%d table%s)> ", n, plural(n)), true
}

var commandSuggestions = []prompt.Suggest{
	{Text: "\\help", Description: "Display help"},
	{Text: "\\quit", Description: "Exit"},
	{Text: "\\clear", Description: "Clear the current statement"},
	{Text: "\\print", Description: "Print the current statement"},
	{Text: "\\go", Description: "Analyze the current statement"},
	{Text: "\\t", Description: "Add a table card"},
	{Text: "\\tables", Description: "List table cards"},
	{Text: "\\drop", Description: "Remove a table card"},
	{Text: "\\demo", Description: "Load demo data"},
	{Text: "\\load", Description: "Load table cards"},
	{Text: "\\save", Description: "Save table cards"},
	{Text: "\\format", Description: "Pretty-print SQL"},
	{Text: "\\json", Description: "Toggle JSON output"},
	{Text: "\\highlight", Description: "Toggle highlighting"},
	{Text: "\\style", Description: "List or set the color style"},
	{Text: "\\history", Description: "Show recent analyses"},
	{Text: "\\config", Description: "Show configuration"},
}

var keywordSuggestions = []prompt.Suggest{
	{Text: "SELECT", Description: "Query data"},
	{Text: "INSERT INTO", Description: "Insert data"},
	{Text: "UPDATE", Description: "Update data"},
	{Text: "DELETE FROM", Description: "Delete data"},
	{Text: "FROM"}, {Text: "WHERE"}, {Text: "INNER JOIN"}, {Text: "LEFT JOIN"},
	{Text: "RIGHT JOIN"}, {Text: "JOIN"}, {Text: "ON"}, {Text: "AND"}, {Text: "OR"},
	{Text: "ORDER BY"}, {Text: "GROUP BY"}, {Text: "HAVING"}, {Text: "LIKE"},
	{Text: "IN"}, {Text: "BETWEEN"}, {Text: "IS NULL"}, {Text: "DESC"}, {Text: "ASC"},
}

// Completer suggests workspace tables after FROM/JOIN, indexed columns
// after table. and keywords otherwise
func (p *PromptExecutor) Completer(in prompt.Document) []prompt.Suggest {
	text := in.TextBeforeCursor()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if p.buffer != "" && !strings.HasPrefix(strings.TrimSpace(text), "\\") {
		text = p.buffer + text
	}

	ctx := ParseSQLContext(text, len(text))
	word := ctx.PartialWord

	var suggestions []prompt.Suggest
	switch ctx.Context {
	case ContextCommand:
		suggestions = commandSuggestions
	case ContextTable:
		suggestions = p.tableSuggestions()
	case ContextTableDot:
		suggestions = p.columnSuggestions([]string{ctx.CurrentTable})
	case ContextColumn:
		suggestions = append(p.columnSuggestions(ctx.Tables), keywordSuggestions...)
	default:
		suggestions = keywordSuggestions
	}

	if word == "" && ctx.Context == ContextKeyword {
		return nil
	}
	return findMatches(word, suggestions)
}

func (p *PromptExecutor) tableSuggestions() []prompt.Suggest {
	var suggestions []prompt.Suggest
	for _, name := range p.Workspace.Names() {
		suggestions = append(suggestions, prompt.Suggest{Text: name, Description: "table"})
	}
	return suggestions
}

func (p *PromptExecutor) columnSuggestions(tables []string) []prompt.Suggest {
	seen := map[string]bool{}
	var suggestions []prompt.Suggest
	for _, card := range p.Workspace.Tables() {
		if !containsFold(tables, card.Table) {
			continue
		}
		for _, col := range indexedColumns(card.Definition) {
			if seen[strings.ToLower(col)] {
				continue
			}
			seen[strings.ToLower(col)] = true
			suggestions = append(suggestions, prompt.Suggest{Text: col, Description: card.Table + " indexed column"})
		}
	}
	return suggestions
}

var indexColumnsRe = regexp2.MustCompile(`\(([^()]*)\)`, regexp2.None)

// indexedColumns lists the names inside the parentheses of index definitions
func indexedColumns(definition string) []string {
	var cols []string
	m, _ := indexColumnsRe.FindStringMatch(definition)
	for m != nil {
		for _, part := range strings.Split(m.GroupByNumber(1).String(), ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			cols = append(cols, strings.Trim(fields[0], "`[]\""))
		}
		m, _ = indexColumnsRe.FindNextMatch(m)
	}
	return cols
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// scoredSuggestion holds a suggestion with its match score
type scoredSuggestion struct {
	suggestion prompt.Suggest
	score      int
	matchPos   int
}

// findMatches implements fuzzy matching with quality scoring
func findMatches(word string, suggestions []prompt.Suggest) []prompt.Suggest {
	if word == "" {
		return suggestions
	}

	// "key" matches k.*?e.*?y
	var pattern strings.Builder
	for i, char := range word {
		if i > 0 {
			pattern.WriteString(".*?")
		}
		pattern.WriteString(regexp2.Escape(string(char)))
	}
	re, err := regexp2.Compile(pattern.String(), regexp2.IgnoreCase)
	if err != nil {
		return prompt.FilterHasPrefix(suggestions, word, true)
	}

	var scored []scoredSuggestion
	for _, suggestion := range suggestions {
		m, err := re.FindStringMatch(suggestion.Text)
		if err != nil || m == nil {
			continue
		}
		scored = append(scored, scoredSuggestion{
			suggestion: suggestion,
			score:      matchScore(word, suggestion.Text, m.Index, m.Index+m.Length),
			matchPos:   m.Index,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].matchPos < scored[j].matchPos
	})

	matches := make([]prompt.Suggest, len(scored))
	for i, s := range scored {
		matches[i] = s.suggestion
	}
	return matches
}

// matchScore ranks compact, early, prefix and exact-case matches higher
func matchScore(word, suggestion string, matchStart, matchEnd int) int {
	score := 1000
	score -= matchStart * 10
	score -= matchEnd - matchStart

	wordLower := strings.ToLower(word)
	suggLower := strings.ToLower(suggestion)
	if strings.Contains(suggestion, word) {
		score += 100
	} else if strings.Contains(suggLower, wordLower) {
		score += 50
	}
	if strings.HasPrefix(suggLower, wordLower) {
		score += 200
	}

	return score - len(suggestion)
}

func parseToggle(arg string, current bool) (bool, error) {
	switch strings.ToLower(arg) {
	case "", "toggle":
		return !current, nil
	case "on", "true":
		return true, nil
	case "off", "false":
		return false, nil
	default:
		return current, fmt.Errorf("unknown argument %q, expected on, off or toggle", arg)
	}
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// summarize flattens sql onto one line of at most n runes
func summarize(sql string, n int) string {
	flat := strings.Join(strings.Fields(sql), " ")
	if r := []rune(flat); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return flat
}

// StartPrompt starts the interactive prompt, or reads stdin line by line
// when it is not a terminal
func StartPrompt(s *Session) error {
	if err := SaveDefaultConfig(); err != nil {
		s.Logger.Debug().Err(err).Msg("failed to write default config")
	}

	executor := NewPromptExecutor(s)
	if !isTerminal(os.Stdin) {
		executor.nonInteractive = true
		return executor.RunScript(os.Stdin)
	}

	fmt.Fprintln(s.Out, "go-sqladvisor. Type \\h for help, \\demo for sample data.")
	prompt.New(
		executor.Executor,
		executor.Completer,
		prompt.OptionLivePrefix(executor.livePrefix),
		prompt.OptionTitle("go-sqladvisor"),
		prompt.OptionCompletionWordSeparator(" .,()"),
		prompt.OptionSetExitCheckerOnInput(executor.ExitChecker),
	).Run()
	return nil
}
