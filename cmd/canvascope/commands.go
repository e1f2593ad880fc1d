package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v2"
	"go.uber.org/zap"

	"github.com/NoelSason/canvascope/internal/config"
	"github.com/NoelSason/canvascope/internal/identity"
	"github.com/NoelSason/canvascope/internal/ingest"
	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/mcp"
	"github.com/NoelSason/canvascope/internal/rank"
	"github.com/NoelSason/canvascope/internal/search"
	"github.com/NoelSason/canvascope/internal/store"
)

func openStore(resolved config.ResolvedConfig) (*store.Store, error) {
	s, err := store.Open(resolved.DBPath.Value)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func runIngest(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(opts.rest) == 0 {
		return fmt.Errorf("usage: canvascope ingest <file...> (use - for stdin)")
	}
	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	logger := newLogger(resolved.LogLevel.Value)
	defer logger.Sync()

	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := ingest.NewEngine(s)
	ctx := context.Background()

	var bar *progressbar.ProgressBar
	if len(opts.rest) > 1 {
		bar = progressbar.New(len(opts.rest))
	}

	total := &ingest.Report{}
	for _, path := range opts.rest {
		data, err := readBatchFile(path)
		if err != nil {
			return err
		}
		report, err := engine.Ingest(ctx, data)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		logger.Info("batch ingested",
			zap.String("file", path),
			zap.String("batch_id", report.BatchID),
			zap.String("platform", report.Platform),
			zap.Int("accepted", report.Accepted),
			zap.Int("skipped", report.Skipped),
		)
		total.Received += report.Received
		total.Accepted += report.Accepted
		total.Skipped += report.Skipped
		total.Total = report.Total
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Println()
	}

	fmt.Printf("Ingested %d items (%d skipped); collection now holds %d items.\n",
		total.Accepted, total.Skipped, total.Total)
	return nil
}

func readBatchFile(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func runSearch(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(opts.rest) == 0 {
		return fmt.Errorf("usage: canvascope search <query> [--course <name>] [--type <type>] [--limit <n>] [--json]")
	}
	query := strings.Join(opts.rest, " ")

	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	items, err := s.Items(ctx)
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	clicks, err := s.ClickFeedback(ctx)
	if err != nil {
		return fmt.Errorf("loading click feedback: %w", err)
	}

	searchOpts := search.Options{
		Course:  opts.course,
		Type:    parseTypeFlag(opts.typ),
		Limit:   resolved.EffectiveLimit(search.DefaultLimit),
		Context: rankContext(resolved, clicks),
	}

	results := search.NewEngine(items).Search(query, searchOpts)

	if err := s.AddSearch(ctx, query, len(results), time.Now().UTC()); err != nil {
		return fmt.Errorf("recording search: %w", err)
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(formatResults(results))
	return nil
}

// rankContext assembles the ranking context from resolved settings and
// stored click feedback. The resolved course doubles as the active-course
// prior.
func rankContext(resolved config.ResolvedConfig, clicks map[string]store.ClickRecord) rank.Context {
	rc := rank.Context{}
	if len(clicks) > 0 {
		rc.Clicks = make(map[string]rank.ClickStat, len(clicks))
		for path, rec := range clicks {
			rc.Clicks[path] = rank.ClickStat{OpenCount: rec.OpenCount, LastOpenedAt: rec.LastOpenedAt}
		}
	}
	if resolved.ActiveCourseID.Value != "" || resolved.ActiveCourseName.Value != "" {
		rc.ActiveCourse = &rank.ActiveCourse{
			CourseID:   resolved.ActiveCourseID.Value,
			CourseName: resolved.ActiveCourseName.Value,
		}
	}
	return rc
}

func parseTypeFlag(raw string) lms.ItemType {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return lms.ParseType(raw)
}

func formatResults(results []search.Result) string {
	if len(results) == 0 {
		return "No results.\n"
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%2d. %s", i+1, r.Item.DisplayTitle())
		if r.Item.Type != "" {
			fmt.Fprintf(&b, " (%s)", r.Item.Type)
		}
		if r.Item.CourseName != "" {
			fmt.Fprintf(&b, " — %s", r.Item.CourseName)
		}
		b.WriteByte('\n')
		if r.Item.DueAt != nil {
			fmt.Fprintf(&b, "    due %s\n", r.Item.DueAt.Local().Format("Mon Jan 2 15:04"))
		}
		if r.Item.URL != "" {
			fmt.Fprintf(&b, "    %s\n", r.Item.URL)
		}
	}
	return b.String()
}

func runOpen(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(opts.rest) != 1 {
		return fmt.Errorf("usage: canvascope open <url>")
	}
	rawURL := opts.rest[0]
	path := identity.URLPath(rawURL)
	if path == "" {
		return fmt.Errorf("unusable url %q", rawURL)
	}

	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.RecordClick(context.Background(), path, time.Now().UTC()); err != nil {
		return err
	}
	fmt.Printf("Recorded open for %s\n", path)
	return nil
}

func runHistory(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.RecentSearches(context.Background(), resolved.EffectiveLimit(20))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No searches yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %-30q %d results\n",
			e.SearchedAt.Local().Format("2006-01-02 15:04"), e.Query, e.ResultCount)
	}
	return nil
}

func runStats(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(context.Background())
	if err != nil {
		return err
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Items:        %d\n", stats.ItemCount)
	fmt.Printf("Courses:      %d\n", stats.CourseCount)
	fmt.Printf("Clicks:       %d\n", stats.ClickCount)
	fmt.Printf("Searches:     %d\n", stats.SearchCount)
	fmt.Printf("Scan batches: %d\n", stats.BatchCount)
	if stats.LastScanAt != nil {
		fmt.Printf("Last scan:    %s\n", stats.LastScanAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("DB size:      %d bytes\n", stats.DBSizeBytes)
	if resolved.DBPath.Value != "" {
		fmt.Printf("DB path:      %s (from %s)\n", resolved.DBPath.Value, resolved.DBPath.Source)
	}
	return nil
}

func runClear(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if !opts.force {
		return fmt.Errorf("clear deletes all stored data; re-run with --force")
	}
	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Clear(context.Background()); err != nil {
		return err
	}
	fmt.Println("Cleared.")
	return nil
}

func runMCP(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	resolved, err := resolve(opts)
	if err != nil {
		return err
	}
	logger := newLogger(resolved.LogLevel.Value)
	defer logger.Sync()

	s, err := openStore(resolved)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := mcp.ServerConfig{Store: s, Version: version}
	if resolved.ActiveCourseID.Value != "" || resolved.ActiveCourseName.Value != "" {
		cfg.ActiveCourse = &rank.ActiveCourse{
			CourseID:   resolved.ActiveCourseID.Value,
			CourseName: resolved.ActiveCourseName.Value,
		}
	}

	logger.Info("serving MCP on stdio",
		zap.String("db", resolved.DBPath.Value),
		zap.String("version", version),
	)
	return mcp.Serve(cfg)
}
