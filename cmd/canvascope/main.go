// Command canvascope is the CLI for the Canvascope content collection:
// ingest scraper batches, search them, and serve the collection over MCP.
package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/NoelSason/canvascope/internal/config"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "open":
		err = runOpen(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "clear":
		err = runClear(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("canvascope %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOpts are the flags shared by every command.
type globalOpts struct {
	configPath string
	dbPath     string
	limit      string
	course     string
	typ        string
	logLevel   string
	jsonOut    bool
	force      bool
	rest       []string
}

// parseArgs splits flags from positional arguments. Flags take their value
// either as --flag=value or as the following argument.
func parseArgs(args []string) (globalOpts, error) {
	var opts globalOpts

	takeValue := func(i *int, arg, name string) (string, error) {
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			return arg[eq+1:], nil
		}
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("flag %s needs a value", name)
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name := arg
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			name = arg[:eq]
		}
		var err error
		switch name {
		case "--config":
			opts.configPath, err = takeValue(&i, arg, name)
		case "--db":
			opts.dbPath, err = takeValue(&i, arg, name)
		case "--limit", "-n":
			opts.limit, err = takeValue(&i, arg, name)
		case "--course", "-c":
			opts.course, err = takeValue(&i, arg, name)
		case "--type", "-t":
			opts.typ, err = takeValue(&i, arg, name)
		case "--log-level":
			opts.logLevel, err = takeValue(&i, arg, name)
		case "--json":
			opts.jsonOut = true
		case "--force", "-f":
			opts.force = true
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown flag: %s", arg)
			}
			opts.rest = append(opts.rest, arg)
		}
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// resolve maps CLI flags plus file and env settings into a ResolvedConfig.
func resolve(opts globalOpts) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath:  opts.configPath,
		CLIDBPath:   opts.dbPath,
		CLILimit:    opts.limit,
		CLICourse:   opts.course,
		CLILogLevel: opts.logLevel,
	})
}

// newLogger builds a console zap logger writing to stderr so command output
// on stdout stays machine-readable.
func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.TrimSpace(level)); err == nil && level != "" {
		lvl = parsed
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printUsage() {
	fmt.Printf(`canvascope %s — relevance search over scraped course content

Usage:
  canvascope <command> [arguments]

Commands:
  ingest <file...>    Ingest scraper batches (JSON; use - for stdin)
  search <query>      Search the collection
  open <url>          Record that a result was opened
  history             Show recent searches
  stats               Show collection statistics
  clear               Delete all stored data (needs --force)
  mcp                 Serve the collection over MCP on stdio
  version             Print version

Search Flags:
  -c, --course <name> Restrict to one course
  -t, --type <type>   Restrict to one content type
  -n, --limit <n>     Maximum results
      --json          JSON output

Flags:
      --config <path> Config file (default ~/.canvascope/config.yaml)
      --db <path>     Database file (default ~/.canvascope/canvascope.db)
      --log-level <l> Log level (debug, info, warn, error)
  -h, --help          Show this help message
  -v, --version       Print version
`, version)
}
