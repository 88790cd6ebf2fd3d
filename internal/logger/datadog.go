package logger

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

const (
	defaultDataDogBatchSize = 50
	defaultDataDogTimeout   = 5 * time.Second
	dataDogFlushInterval    = 2 * time.Second
	dataDogQueueSize        = 1024
)

var (
	// ErrDataDogAPIKeyEmpty is returned if DataDog shipping is enabled without an api key.
	ErrDataDogAPIKeyEmpty = errors.New("config Log.DataDog.APIKey can not be empty")

	// ErrDataDogWriterClosed is returned on writes after Close.
	ErrDataDogWriterClosed = errors.New("datadog writer is closed")
)

// submitFunc sends one batch of log items.
type submitFunc func(ctx context.Context, items []datadogV2.HTTPLogItem) error

// DataDogWriter ships log lines asynchronously to the DataDog logs intake.
// Lines are batched; when the queue is full new lines are dropped so logging
// never blocks request handling.
type DataDogWriter struct {
	cfg      DataDog
	hostname string
	base     context.Context // carries api key and site
	submit   submitFunc

	mu      sync.RWMutex
	closed  bool
	queue   chan []byte
	done    chan struct{}
	dropped atomic.Uint64
}

// NewDataDogWriter creates a writer shipping to the DataDog site configured in cfg.
func NewDataDogWriter(cfg DataDog) (*DataDogWriter, error) {
	if cfg.APIKey == "" {
		return nil, ErrDataDogAPIKeyEmpty
	}

	ctx := context.WithValue(
		context.Background(),
		datadog.ContextAPIKeys,
		map[string]datadog.APIKey{"apiKeyAuth": {Key: cfg.APIKey}},
	)

	if cfg.Site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{"site": cfg.Site})
	}

	api := datadogV2.NewLogsApi(datadog.NewAPIClient(datadog.NewConfiguration()))

	submit := func(reqCtx context.Context, items []datadogV2.HTTPLogItem) error {
		_, _, err := api.SubmitLog(reqCtx, items)

		return err //nolint:wrapcheck
	}

	return newDataDogWriter(ctx, cfg, submit), nil
}

func newDataDogWriter(base context.Context, cfg DataDog, submit submitFunc) *DataDogWriter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultDataDogBatchSize
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDataDogTimeout
	}

	hostname, _ := os.Hostname()

	w := &DataDogWriter{
		cfg:      cfg,
		hostname: hostname,
		base:     base,
		submit:   submit,
		queue:    make(chan []byte, dataDogQueueSize),
		done:     make(chan struct{}),
	}

	go w.run()

	return w
}

// Write implements io.Writer. p is copied; zerolog reuses its buffers.
func (w *DataDogWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return 0, ErrDataDogWriterClosed
	}

	line := make([]byte, len(p))
	copy(line, p)

	select {
	case w.queue <- line:
	default:
		w.dropped.Add(1)
	}

	return len(p), nil
}

// Dropped returns the number of lines discarded because the queue was full.
func (w *DataDogWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close flushes queued lines and stops the background sender.
func (w *DataDogWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}

	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done

	return nil
}

func (w *DataDogWriter) run() {
	defer close(w.done)

	ticker := time.NewTicker(dataDogFlushInterval)
	defer ticker.Stop()

	batch := make([]datadogV2.HTTPLogItem, 0, w.cfg.BatchSize)

	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flush(batch)
				return
			}

			batch = append(batch, w.item(line))
			if len(batch) >= w.cfg.BatchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (w *DataDogWriter) item(line []byte) datadogV2.HTTPLogItem {
	item := datadogV2.HTTPLogItem{
		Ddsource: datadog.PtrString("go"),
		Hostname: datadog.PtrString(w.hostname),
		Message:  string(line),
		Service:  datadog.PtrString(w.cfg.ServiceName),
	}

	if w.cfg.Tags != "" {
		item.Ddtags = datadog.PtrString(w.cfg.Tags)
	}

	return item
}

func (w *DataDogWriter) flush(batch []datadogV2.HTTPLogItem) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(w.base, w.cfg.Timeout)
	defer cancel()

	items := make([]datadogV2.HTTPLogItem, len(batch))
	copy(items, batch)

	if err := w.submit(ctx, items); err != nil {
		// the global logger may write to this writer, report on stderr only
		reportWriteError(err)
	}
}
