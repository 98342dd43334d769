package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/finwatch/finwatch/internal/adapter"
	"github.com/finwatch/finwatch/internal/client/jellyfin"
	"github.com/finwatch/finwatch/internal/domain"
	"github.com/finwatch/finwatch/internal/download"
	"github.com/finwatch/finwatch/internal/download/httpengine"
	"github.com/finwatch/finwatch/internal/repository"
	"github.com/finwatch/finwatch/internal/service"
	"github.com/finwatch/finwatch/internal/store"
	"github.com/google/uuid"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `Usage: finwatch [flags] <command>

Commands:
  sync                          push offline playback state and refresh the cache
  search <query>                search the catalog
  downloads [-all]              list downloaded items
  download <item-id> <src-id>   download a media source
  cancel <item-id> <src-id>     cancel a running download
  delete <item-id>              delete a downloaded item and its files
  progress <item-id> <src-id>   show download progress
  watch                         poll running transfers until interrupted
`

func main() {
	var showVersion bool
	var offline bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&offline, "offline", false, "use the local cache instead of the server")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if showVersion {
		fmt.Printf("finwatch %s\n", Version)
		return
	}

	if err := run(offline, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(offline bool, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("no command given")
	}

	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting finwatch", "version", Version)

	if !cfg.IsConfigured() {
		return fmt.Errorf("no server configured, set server.url and server.token in the config file")
	}

	st, err := store.NewCacheStore(cfg.Downloads.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}
	defer st.Close()

	session := domain.Session{ServerID: cfg.Server.ServerID, UserID: cfg.Server.UserID}
	client := jellyfin.NewClient(cfg.Server.URL, cfg.Server.Token, cfg.Server.UserID, logger)

	online := repository.NewOnline(client, st, session, logger)
	local := repository.NewOffline(st, session, cfg.Downloads.MediaDir, logger)
	repo := repository.NewSwitch(online, local, logger)
	if offline {
		repo.SetMode(repository.ModeOffline)
	}

	engine := httpengine.NewEngine(nil, logger)
	mgr := download.NewManager(st, online, engine, session, download.Options{
		MediaDir:         cfg.Downloads.MediaDir,
		RequireUnmetered: cfg.Downloads.RequireUnmetered,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Reconcile(ctx); err != nil {
		logger.Warn("transfer reconciliation failed", "error", err)
	}

	switch args[0] {
	case "sync":
		syncSvc := service.NewSyncService(online, st, session, cfg.Downloads.MediaDir, logger)
		return syncSvc.Sync(ctx)

	case "search":
		if len(args) < 2 {
			return fmt.Errorf("search needs a query")
		}
		searchSvc := service.NewSearchService(repo, logger)
		return searchCatalog(ctx, searchSvc, strings.Join(args[1:], " "), os.Stdout)

	case "downloads":
		all := len(args) > 1 && args[1] == "-all"
		return listDownloads(ctx, repo, !all)

	case "download":
		itemID, sourceID, err := itemSourceArgs(args[1:])
		if err != nil {
			return err
		}
		return mgr.DownloadItem(ctx, itemID, sourceID)

	case "cancel":
		itemID, sourceID, err := itemSourceArgs(args[1:])
		if err != nil {
			return err
		}
		return mgr.CancelDownload(ctx, itemID, sourceID)

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("delete needs an item id")
		}
		itemID, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid item id: %w", err)
		}
		return mgr.DeleteItem(ctx, itemID)

	case "progress":
		itemID, sourceID, err := itemSourceArgs(args[1:])
		if err != nil {
			return err
		}
		return showProgress(ctx, mgr, itemID, sourceID)

	case "watch":
		interval := time.Duration(cfg.Downloads.PollSeconds) * time.Second
		err := mgr.Watch(ctx, interval)
		if err == context.Canceled {
			return nil
		}
		return err

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func itemSourceArgs(args []string) (uuid.UUID, string, error) {
	if len(args) < 2 {
		return uuid.Nil, "", fmt.Errorf("expected <item-id> <source-id>")
	}
	itemID, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid item id: %w", err)
	}
	return itemID, args[1], nil
}

func searchCatalog(ctx context.Context, svc *service.SearchService, query string, w io.Writer) error {
	items, err := svc.Search(ctx, query)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "no matches")
		return nil
	}

	for _, item := range items {
		fmt.Fprintf(w, "%s  %-8s %s\n", item.GetID(), item.GetKind(), item.GetName())
	}
	return nil
}

func listDownloads(ctx context.Context, repo domain.Repository, currentServerOnly bool) error {
	items, err := repo.GetDownloads(ctx, currentServerOnly)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("no downloads")
		return nil
	}

	for _, item := range items {
		state := "downloading"
		if domain.IsDownloaded(item) {
			state = "downloaded"
		}
		var size int64
		for _, src := range item.GetSources() {
			size += src.Size
		}
		fmt.Printf("%s  %-40s %-11s %s\n", item.GetID(), item.GetName(), state, humanize.Bytes(uint64(size)))
	}
	return nil
}

func showProgress(ctx context.Context, mgr *download.Manager, itemID uuid.UUID, sourceID string) error {
	status, percent, err := mgr.GetProgress(ctx, mgr.TransferID(itemID, sourceID))
	if err != nil {
		return err
	}

	if percent < 0 {
		fmt.Printf("%s\n", status)
		return nil
	}
	fmt.Printf("%s %d%%\n", status, percent)
	return nil
}
