// Package httpengine is a transfer engine that downloads files over plain
// HTTP. It keeps per-transfer state in memory, so transfer ids do not
// survive a process restart; the download manager's reconcile pass handles
// that by resetting rows whose transfer the engine no longer knows.
package httpengine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
)

const dirPerm = 0755

// progress report granularity in bytes
const reportInterval = 8 << 20

type task struct {
	status          atomic.Int32
	bytesTotal      atomic.Int64
	bytesDownloaded atomic.Int64
	cancel          context.CancelFunc
	destination     string
}

// Engine downloads transfers over HTTP, one goroutine per transfer.
type Engine struct {
	client *http.Client
	logger *slog.Logger

	// Metered reports whether the active network connection is metered.
	// Left nil, every connection counts as unmetered.
	Metered func() bool

	mu    sync.RWMutex
	tasks map[string]*task
}

// NewEngine creates an HTTP transfer engine
func NewEngine(client *http.Client, logger *slog.Logger) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client: client,
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

// Enqueue starts the transfer and returns its id. The download itself runs
// in the background; progress is observed through Query.
func (e *Engine) Enqueue(ctx context.Context, req domain.TransferRequest) (string, error) {
	if req.RequireUnmetered && e.Metered != nil && e.Metered() {
		return "", fmt.Errorf("transfer %q needs an unmetered network: %w", req.Title, domain.ErrTransferFailed)
	}

	if err := os.MkdirAll(filepath.Dir(req.Destination), dirPerm); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &task{cancel: cancel, destination: req.Destination}
	t.status.Store(int32(domain.TransferStatusPending))

	id := uuid.NewString()
	e.mu.Lock()
	e.tasks[id] = t
	e.mu.Unlock()

	go e.run(runCtx, id, t, req)
	return id, nil
}

// Query reports the current state of a transfer. Ids the engine does not
// know yield the unknown status, never an error.
func (e *Engine) Query(ctx context.Context, transferID string) (domain.TransferState, error) {
	e.mu.RLock()
	t, ok := e.tasks[transferID]
	e.mu.RUnlock()
	if !ok {
		return domain.TransferState{Status: domain.TransferStatusUnknown}, nil
	}
	return domain.TransferState{
		Status:          domain.TransferStatus(t.status.Load()),
		BytesTotal:      t.bytesTotal.Load(),
		BytesDownloaded: t.bytesDownloaded.Load(),
	}, nil
}

// Cancel stops a transfer and removes its partial file
func (e *Engine) Cancel(ctx context.Context, transferID string) error {
	e.mu.Lock()
	t, ok := e.tasks[transferID]
	if ok {
		delete(e.tasks, transferID)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	t.cancel()
	if err := os.Remove(t.destination); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("failed to remove partial download", "path", t.destination, "error", err)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, id string, t *task, req domain.TransferRequest) {
	t.status.Store(int32(domain.TransferStatusRunning))

	if err := e.fetch(ctx, t, req); err != nil {
		if ctx.Err() != nil {
			// Cancelled: Cancel already cleaned up
			return
		}
		e.logger.Error("transfer failed", "transfer", id, "title", req.Title, "error", err)
		t.status.Store(int32(domain.TransferStatusFailed))
		return
	}

	t.status.Store(int32(domain.TransferStatusSuccessful))
	e.logger.Info("transfer finished",
		"transfer", id,
		"title", req.Title,
		"size", humanize.Bytes(uint64(t.bytesDownloaded.Load())))
}

func (e *Engine) fetch(ctx context.Context, t *task, req domain.TransferRequest) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URI, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to fetch %q: %w", req.Title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %q", resp.StatusCode, req.Title)
	}

	if resp.ContentLength > 0 {
		t.bytesTotal.Store(resp.ContentLength)
	}

	out, err := os.Create(req.Destination)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", req.Destination, err)
	}
	defer out.Close()

	reader := &countingReader{
		reader:   resp.Body,
		interval: reportInterval,
		onRead: func(n int64) {
			t.bytesDownloaded.Store(n)
		},
	}
	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("failed to write %s: %w", req.Destination, err)
	}

	// Flush the final count; the interval may have swallowed the tail
	t.bytesDownloaded.Store(reader.total)
	return out.Close()
}

// countingReader reports cumulative bytes read every interval bytes
type countingReader struct {
	reader    io.Reader
	interval  int64
	onRead    func(total int64)
	total     int64
	unflushed int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.total += int64(n)
		r.unflushed += int64(n)
		if r.unflushed >= r.interval {
			r.onRead(r.total)
			r.unflushed = 0
		}
	}
	return n, err
}
