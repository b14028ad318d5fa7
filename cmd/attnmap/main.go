package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/attnmap/internal/apperr"
	"github.com/ivlev/attnmap/internal/canvas"
	"github.com/ivlev/attnmap/internal/config"
	"github.com/ivlev/attnmap/internal/console"
	"github.com/ivlev/attnmap/internal/messages"
	"github.com/ivlev/attnmap/internal/session"
	"github.com/ivlev/attnmap/internal/settings"
	"github.com/ivlev/attnmap/internal/system"
	"github.com/ivlev/attnmap/internal/transport"
)

const heatmapOpacity = 0.7

func main() {
	os.Exit(run())
}

func run() int {
	configPtr := flag.String("config", "attnmap.yaml", "Config file (missing file means defaults)")
	inputPtr := flag.String("input", "input", "Layout file or directory (a directory picks its newest layout)")
	outputPtr := flag.String("output", "", "Output directory (overrides output.dir)")
	selectPtr := flag.String("select", "", "Comma-separated layer ids to select instead of the saved selection")
	svgPtr := flag.Bool("svg", false, "Ask the service for an SVG overlay")
	qrPtr := flag.Bool("qr", false, "Stamp a QR code linking to the hosted heatmap")
	dpiPtr := flag.Int("dpi", 0, "Export DPI (overrides export.dpi)")
	workersPtr := flag.Int("workers", 0, "Layouts processed in parallel (overrides workers)")
	setKeyPtr := flag.Bool("set-api-key", false, "Enter a new API key and exit")
	creditsPtr := flag.Bool("credits", false, "Show the remaining credits and exit")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if *outputPtr != "" {
		cfg.Output.Dir = *outputPtr
	}
	if *svgPtr {
		cfg.API.SVG = true
	}
	if *qrPtr {
		cfg.Output.QRCode = true
	}
	if *dpiPtr > 0 {
		cfg.Export.DPI = *dpiPtr
	}
	if *workersPtr > 0 {
		cfg.Workers = *workersPtr
	}

	if err := system.InitLogger(cfg.Log.Mode); err != nil {
		log.Fatalf("[-] Logger error: %v", err)
	}
	defer system.Sync()
	system.InitResourceLimits()

	store, closeStore, err := openSettings(cfg)
	if err != nil {
		log.Printf("[-] Settings error: %v", err)
		return 1
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := console.New(os.Stdin, os.Stdout)
	client := transport.NewClient(nil, cfg.API.RequestTimeout, system.Logger.Named("transport"))

	switch {
	case *setKeyPtr:
		if err := session.SetAPIKey(ctx, store, con, con, cfg.AOI.MarkerTag); err != nil {
			log.Printf("[-] %v", err)
			return 1
		}
		return 0
	case *creditsPtr:
		if err := showCredits(ctx, cfg, store, con, client); err != nil {
			return 1
		}
		return 0
	}

	layouts := flag.Args()
	if len(layouts) == 0 {
		path, err := resolveInput(*inputPtr)
		if err != nil {
			log.Printf("[-] %v. Put a layout .yaml into %s/", err, *inputPtr)
			return 1
		}
		con.Message("Selected layout: " + path)
		layouts = []string{path}
	}

	// one invocation per document, however the path is spelled
	layouts, err = uniqueLayouts(layouts)
	if err != nil {
		log.Printf("[-] %v", err)
		return 1
	}

	// ask once up front so parallel runs never prompt concurrently
	if _, err := session.EnsureAPIKey(ctx, store, con, con, cfg.AOI.MarkerTag); err != nil {
		a := messages.ForKind(apperr.KindOf(err))
		con.Alert(a.Title, a.Body)
		return 1
	}

	var selection []string
	if *selectPtr != "" {
		selection = strings.Split(*selectPtr, ",")
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	failed := make([]bool, len(layouts))
	for i, path := range layouts {
		g.Go(func() error {
			if err := process(ctx, cfg, path, selection, store, con, client); err != nil {
				system.Logger.Error("layout failed", zap.String("layout", path), zap.Error(err))
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if f {
			return 1
		}
	}
	return 0
}

func process(ctx context.Context, cfg *config.Config, path string, selection []string, store settings.Store, con *console.Console, client *transport.Client) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	logger := system.Logger.With(zap.String("layout", name))

	doc, err := canvas.Open(path, canvas.Options{
		OutputDir: filepath.Join(cfg.Output.Dir, name),
		DPI:       cfg.Export.DPI,
		QRCode:    cfg.Output.QRCode,
		Opacity:   heatmapOpacity,
		Fetcher:   client,
		Logger:    logger,
	})
	if err != nil {
		con.Alert(messages.ForKind(apperr.ExportUnavailable).Title, err.Error())
		return err
	}
	defer doc.Close()

	if selection != nil {
		doc.Select(selection...)
	}

	o := session.New(session.Deps{
		Document:  doc,
		Transport: client,
		Settings:  store,
		Notifier:  con,
		Prompter:  con,
		Logger:    logger,
	}, session.OptionsFromConfig(cfg))

	outcome, err := o.Invoke(ctx)
	// marks are kept even when the invocation fails
	if saveErr := doc.Save(); saveErr != nil {
		logger.Warn("failed to save layout", zap.Error(saveErr))
	}
	if err != nil {
		return err
	}

	con.Success(fmt.Sprintf("%s: %d area(s) scored, heatmap in %s", name, len(outcome.Scores), filepath.Join(cfg.Output.Dir, name)))
	return nil
}

// uniqueLayouts drops repeated layout paths, comparing absolute paths with
// symlinks resolved, and keeps the first spelling of each.
func uniqueLayouts(paths []string) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, p)
	}
	return out, nil
}

func resolveInput(input string) (string, error) {
	fi, err := os.Stat(input)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return system.FindLatestLayout(input)
	}
	return input, nil
}

func showCredits(ctx context.Context, cfg *config.Config, store settings.Store, con *console.Console, client *transport.Client) error {
	key, err := session.EnsureAPIKey(ctx, store, con, con, cfg.AOI.MarkerTag)
	if err == nil {
		var n int
		if n, err = session.Credits(ctx, client, cfg.API.CreditsURL, key); err == nil {
			con.Message(messages.Credits(n))
			return nil
		}
	}
	a := messages.ForKind(apperr.KindOf(err))
	con.Alert(a.Title, a.Body)
	return err
}

func openSettings(cfg *config.Config) (settings.Store, func(), error) {
	switch cfg.Settings.Backend {
	case "redis":
		r := settings.NewRedis(cfg.Settings.Redis.Addr, cfg.Settings.Redis.Password, cfg.Settings.Redis.DB, cfg.Settings.Redis.Prefix)
		if err := r.Ping(context.Background()); err != nil {
			r.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Settings.Redis.Addr, err)
		}
		return r, func() { r.Close() }, nil
	case "memory":
		return settings.NewMemory(), func() {}, nil
	default:
		return settings.NewFile(cfg.Settings.Path), func() {}, nil
	}
}
