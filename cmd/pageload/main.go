// Command pageload walks a paginated envelope API page by page and writes
// every row as one JSON line to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/pageload/pkg/client"
	"github.com/Sternrassler/pageload/pkg/config"
	"github.com/Sternrassler/pageload/pkg/events"
	"github.com/Sternrassler/pageload/pkg/loader"
	"github.com/Sternrassler/pageload/pkg/logging"
	"github.com/Sternrassler/pageload/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Row is one collection entry as decoded from the API.
type Row = map[string]any

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pageload: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		logger := logging.NewLogger("pageload")
		logger.Error().Err(err).Msg("pageload failed")
		os.Exit(1)
	}
}

// run loads the configured collection and writes its rows to out.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger("pageload")

	var rdb *redis.Client
	if opts := cfg.RedisOptions(); opts != nil {
		rdb = redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	httpClient, err := client.New(cfg.ClientConfig(rdb))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer httpClient.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.NewMux(readyCheck(rdb)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	w := &walker{
		out:      json.NewEncoder(out),
		maxPages: cfg.MaxPages,
		loop:     events.NewLoop(16),
		logger:   logger,
	}
	w.list = loader.NewList(
		client.PageFetcher[Row](httpClient, cfg.Endpoint, cfg.QueryValues()),
		loader.Options{
			Name:       "pageload",
			Bus:        events.NewBus(),
			Dispatcher: w.loop,
			Limit:      cfg.PageSize,
		},
	)

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("endpoint", cfg.Endpoint).
		Int("page_size", cfg.PageSize).
		Bool("cache", rdb != nil).
		Msg("Starting collection walk")

	return w.walk(ctx)
}

// readyCheck reports healthy while Redis, if configured, answers pings.
func readyCheck(rdb *redis.Client) func() bool {
	if rdb == nil {
		return nil
	}
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err() == nil
	}
}

// walker chains LOAD_MORE into the next page until the collection ends.
type walker struct {
	list     *loader.ListLoader[Row]
	loop     *events.Loop
	out      *json.Encoder
	maxPages int
	logger   zerolog.Logger

	// Owned by the loop goroutine.
	written int
	pages   int
	err     error
}

func (w *walker) walk(ctx context.Context) error {
	bus := w.list.Bus()
	bus.Bind(events.Loading, func(events.Outcome) {
		w.logger.Debug().Int("page", w.list.PageNumber()).Msg("Loading page")
	})
	bus.Bind(events.LoadMore, func(events.Outcome) {
		if !w.flush() {
			return
		}
		if w.maxPages > 0 && w.pages >= w.maxPages {
			w.logger.Info().Int("pages", w.pages).Msg("Page limit reached")
			w.loop.Stop()
			return
		}
		w.list.LoadMore(ctx)
	})
	bus.Bind(events.NoData, func(o events.Outcome) {
		w.flush()
		w.logger.Info().
			Int("rows", w.written).
			Int("skipped", w.list.Skipped()).
			Int("total", w.list.Total()).
			Bool("empty", !o.IsSuccess()).
			Msg("Collection complete")
		w.loop.Stop()
	})
	bus.Bind(events.LoadSuccess, func(events.Outcome) {})
	bus.Bind(events.LoadFailure, func(o events.Outcome) {
		w.err = fmt.Errorf("load page %d: code %d: %s", w.list.PageNumber(), o.Code, o.Message)
		w.loop.Stop()
	})

	w.list.Refresh(ctx)

	if err := w.loop.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			w.logger.Warn().Int("rows", w.written).Msg("Interrupted")
			return nil
		}
		return err
	}
	return w.err
}

// flush writes the rows loaded since the last flush.
func (w *walker) flush() bool {
	w.pages++
	rows := w.list.Rows()
	for _, row := range rows[w.written:] {
		if err := w.out.Encode(row); err != nil {
			w.err = fmt.Errorf("write row: %w", err)
			w.loop.Stop()
			return false
		}
	}
	w.written = len(rows)
	return true
}
