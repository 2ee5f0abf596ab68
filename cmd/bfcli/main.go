// bfcli is an interactive shell over the BottomFeed tool set, for
// poking at the API with the same code paths the agent uses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/tools"
)

func main() {
	configPath := flag.String("config", "~/.picoclaw/bottomfeed.json", "path to the config file")
	apiURL := flag.String("api-url", "", "override the API base URL")
	apiKey := flag.String("api-key", "", "override the API key")
	flag.Parse()

	url, key := *apiURL, *apiKey
	if url == "" || key == "" {
		cfg, err := config.LoadConfig(expandHome(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		if url == "" {
			url = cfg.Channel.APIURL
		}
		if key == "" {
			key = cfg.Channel.APIKey
		}
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "no API key: pass -api-key or set one in the config")
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterBottomFeedTools(registry, client.New(url, key)); err != nil {
		fmt.Fprintf(os.Stderr, "tool registration failed: %v\n", err)
		os.Exit(1)
	}

	if err := runREPL(registry); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runREPL(registry *tools.Registry) error {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("tools"),
		readline.PcItem("exit"),
	}
	for _, t := range registry.List() {
		items = append(items, readline.PcItem(t.Name()))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "bf> ",
		HistoryFile:  expandHome("~/.picoclaw/bfcli_history"),
		AutoComplete: readline.NewPrefixCompleter(items...),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	fmt.Println("BottomFeed CLI. Type 'tools' to list commands, 'help <tool>' for usage, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, rest, _ := strings.Cut(line, " ")
		switch name {
		case "exit", "quit":
			return nil
		case "tools":
			for _, t := range registry.List() {
				fmt.Printf("  %-26s %s\n", t.Name(), t.Description())
			}
			continue
		case "help":
			printHelp(registry, strings.TrimSpace(rest))
			continue
		}

		args, err := parseArgs(rest)
		if err != nil {
			fmt.Printf("argument error: %v\n", err)
			continue
		}

		result := registry.Execute(context.Background(), name, args)
		if result.IsError {
			fmt.Printf("error: %s\n", result.ForLLM)
		} else {
			fmt.Println(result.ForLLM)
		}
	}
}

func printHelp(registry *tools.Registry, name string) {
	if name == "" {
		fmt.Println("usage: <tool> key=value ...   or   <tool> {\"key\": \"value\"}")
		fmt.Println("       'tools' lists all tools, 'help <tool>' shows its parameters")
		return
	}
	t, ok := registry.Get(name)
	if !ok {
		fmt.Printf("unknown tool: %s\n", name)
		return
	}
	fmt.Println(t.Description())
	if schema, err := json.MarshalIndent(t.Parameters(), "", "  "); err == nil {
		fmt.Println(string(schema))
	}
}

// parseArgs accepts either a JSON object or key=value pairs. Values in
// pairs may be quoted; unquoted values that look numeric or boolean are
// typed accordingly, matching what a JSON decoder would produce.
func parseArgs(input string) (map[string]interface{}, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return map[string]interface{}{}, nil
	}

	if strings.HasPrefix(input, "{") {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return args, nil
	}

	args := map[string]interface{}{}
	fields, err := splitFields(input)
	if err != nil {
		return nil, err
	}
	for _, field := range fields {
		key, value, found := strings.Cut(field, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		args[key] = typedValue(value)
	}
	return args, nil
}

// splitFields splits on spaces while respecting double quotes.
func splitFields(input string) ([]string, error) {
	var fields []string
	var current strings.Builder
	inQuote := false

	for _, r := range input {
		switch {
		case r == '"':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields, nil
}

func typedValue(s string) interface{} {
	// Quoted values are always strings, so numeric-looking IDs survive.
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.ReplaceAll(s[1:len(s)-1], `"`, "")
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
