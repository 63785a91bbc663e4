package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/EgorLis/webcast/internal/config"
	"github.com/EgorLis/webcast/internal/events"
	"github.com/EgorLis/webcast/internal/live"
	"github.com/EgorLis/webcast/internal/logging"
	"github.com/EgorLis/webcast/internal/metrics"
	"github.com/EgorLis/webcast/internal/sink"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func watchCmd(load loader) *cobra.Command {
	var (
		roomID    string
		wait      bool
		waitEvery time.Duration
		only      []string
	)

	cmd := &cobra.Command{
		Use:   "watch <user>",
		Short: "Connect to the user's live room and stream events",
		Long: `Connect to the user's live room and forward every event to the sink
(JSON lines on stdout or a Redis channel) until the stream ends or the
process receives SIGINT/SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			kinds, err := parseKinds(only)
			if err != nil {
				return err
			}
			return watch(cmd.Context(), cfg, args[0], roomID, wait, waitEvery, kinds)
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "room id (skip lookup)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the user goes live before connecting")
	cmd.Flags().DurationVar(&waitEvery, "wait-interval", time.Minute, "live status poll interval for --wait (min 30s)")
	cmd.Flags().StringSliceVar(&only, "events", nil, "forward only these events (e.g. chat,gift,like)")
	return cmd
}

func parseKinds(names []string) ([]events.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	// статусы и ошибки идут всегда
	kinds := []events.Kind{events.KindConnected, events.KindDisconnected, events.KindError}
	for _, n := range names {
		k, ok := events.ParseKind(n)
		if !ok {
			return nil, errors.New("unknown event " + n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func watch(ctx context.Context, cfg *config.Config, user, roomID string, wait bool, waitEvery time.Duration, kinds []events.Kind) error {
	log := logging.L()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	out, err := openSink(ctx, cfg.Sink)
	if err != nil {
		return err
	}
	defer out.Close()

	conn, err := live.New(user, connectionOptions(cfg, m))
	if err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: router(reg, conn)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Info().Str("addr", cfg.Metrics.Listen).Msg("metrics listening")
	}

	if wait {
		log.Info().Str(logging.FieldUniqueID, conn.UniqueID()).Msg("waiting for the stream to start")
		if err := conn.WaitUntilLive(ctx, waitEvery); err != nil {
			return err
		}
	}

	ended := make(chan struct{})
	var once sync.Once
	sink.Forward(ctx, conn, out, log, kinds...)
	conn.Subscribe(func(events.Event) { once.Do(func() { close(ended) }) }, events.KindDisconnected)

	st, err := conn.Connect(ctx, roomID)
	if err != nil {
		_ = out.Write(ctx, sink.Envelope{Type: sink.TypeError, Message: "connect failed", Detail: sink.ErrorDetail{Message: err.Error()}, Time: time.Now().UTC()})
		return err
	}
	log.Info().Str(logging.FieldRoomID, st.RoomID).Msg("watching")

	select {
	case <-ctx.Done():
		conn.Disconnect()
	case <-ended:
	}
	return nil
}

func openSink(ctx context.Context, cfg config.SinkConfig) (sink.Sink, error) {
	switch cfg.Kind {
	case config.SinkRedis:
		return sink.NewRedis(ctx, sink.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
	default:
		return sink.NewLines(nopCloser{os.Stdout}), nil
	}
}

// nopCloser — stdout не закрываем.
type nopCloser struct{ *os.File }

func (nopCloser) Close() error { return nil }

// router — /metrics и /healthz (200, пока подключены).
func router(reg *prometheus.Registry, conn *live.Connection) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := conn.State()
		if st != live.StateConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(st.String() + "\n"))
	})
	return r
}
