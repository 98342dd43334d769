package httpengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, e *Engine, id string, want domain.TransferStatus) domain.TransferState {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := e.Query(context.Background(), id)
		require.NoError(t, err)
		if state.Status == want {
			return state
		}
		if state.Status.IsTerminal() {
			t.Fatalf("transfer ended with %s, want %s", state.Status, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("transfer never reached %s", want)
	return domain.TransferState{}
}

func TestEnqueueDownloadsFile(t *testing.T) {
	payload := []byte("some video bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	engine := NewEngine(nil, nil)
	dest := filepath.Join(t.TempDir(), "item.src.download")

	id, err := engine.Enqueue(context.Background(), domain.TransferRequest{
		URI:         srv.URL,
		Destination: dest,
		Title:       "Stalker",
	})
	require.NoError(t, err)

	state := waitForStatus(t, engine, id, domain.TransferStatusSuccessful)
	assert.Equal(t, int64(len(payload)), state.BytesDownloaded)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestEnqueueFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := NewEngine(nil, nil)
	dest := filepath.Join(t.TempDir(), "item.src.download")

	id, err := engine.Enqueue(context.Background(), domain.TransferRequest{URI: srv.URL, Destination: dest})
	require.NoError(t, err)

	waitForStatus(t, engine, id, domain.TransferStatusFailed)
}

func TestQueryUnknownTransfer(t *testing.T) {
	engine := NewEngine(nil, nil)

	state, err := engine.Query(context.Background(), "no-such-transfer")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusUnknown, state.Status)
}

func TestCancelRemovesPartialFile(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer srv.Close()
	defer close(release)

	engine := NewEngine(nil, nil)
	dest := filepath.Join(t.TempDir(), "item.src.download")

	id, err := engine.Enqueue(context.Background(), domain.TransferRequest{URI: srv.URL, Destination: dest})
	require.NoError(t, err)
	waitForStatus(t, engine, id, domain.TransferStatusRunning)

	require.NoError(t, engine.Cancel(context.Background(), id))

	state, err := engine.Query(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusUnknown, state.Status)
	assert.NoFileExists(t, dest)
}

func TestEnqueueRefusesMeteredNetwork(t *testing.T) {
	engine := NewEngine(nil, nil)
	engine.Metered = func() bool { return true }

	_, err := engine.Enqueue(context.Background(), domain.TransferRequest{
		URI:              "http://media.local/stream",
		Destination:      filepath.Join(t.TempDir(), "f.download"),
		RequireUnmetered: true,
	})
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
}
