package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/config"
	"github.com/pbaille/gallery/internal/logging"
	"github.com/pbaille/gallery/internal/store"
)

var (
	configFile string
	backend    string
	dbPath     string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gallery",
		Short:        "Image catalog for labelling solder joint defects",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.gallery.yaml)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend: sqlite, redis, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(starCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(annotateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(datasetCmd())

	return rootCmd
}

// app is what every command works against.
type app struct {
	cfg *config.Config
	log *zap.Logger
	kv  store.KV
	cat *catalog.Catalog
}

// openApp loads the configuration, applies flag overrides and opens the
// catalog. Callers must Close the app.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	kv, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	cat := catalog.Open(ctx, kv,
		catalog.WithLogger(log),
		catalog.WithDemoImages(cfg.DemoImages),
	)
	return &app{cfg: cfg, log: log, kv: kv, cat: cat}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	if err := a.kv.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close store: %v\n", err)
	}
}

// withApp runs fn against an opened app.
func withApp(cmd *cobra.Command, fn func(*app) error) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// resolveImage expands an id prefix.
func (a *app) resolveImage(prefix string) (string, error) {
	id, ok := a.cat.ResolveImageID(prefix)
	if !ok {
		return "", fmt.Errorf("image not found or ambiguous: %s", prefix)
	}
	return id, nil
}

// resolveTags maps tag ids or names to ids, creating unknown names when
// create is set.
func (a *app) resolveTags(refs []string, create bool) ([]string, error) {
	known := make(map[string]bool)
	for _, t := range a.cat.Tags() {
		known[t.ID] = true
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if known[ref] {
			ids = append(ids, ref)
			continue
		}
		if id, ok := a.cat.TagIDByName(ref); ok {
			ids = append(ids, id)
			continue
		}
		if !create {
			return nil, fmt.Errorf("unknown tag: %s", ref)
		}
		tag, ok := a.cat.EnsureTag(ref)
		if !ok {
			return nil, fmt.Errorf("cannot create tag %q", ref)
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func (a *app) requireAdmin() error {
	if !a.cat.IsAdmin() {
		return fmt.Errorf("admin mode is off, run 'gallery admin on' first")
	}
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
