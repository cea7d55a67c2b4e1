package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mobilecoinofficial/qrhunt/internal/config"
	"github.com/mobilecoinofficial/qrhunt/internal/hunt"
	"github.com/mobilecoinofficial/qrhunt/internal/ledger"
	"github.com/mobilecoinofficial/qrhunt/internal/metrics"
	"github.com/mobilecoinofficial/qrhunt/internal/notify"
	"github.com/mobilecoinofficial/qrhunt/internal/pipeline"
	"github.com/mobilecoinofficial/qrhunt/internal/verify"
	"github.com/mobilecoinofficial/qrhunt/internal/worker"
)

// stack is a fully wired hunt service plus what must be released with it.
type stack struct {
	svc     *hunt.Service
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newPipeline returns the detection pipeline for the configured render dir.
func (a *app) newPipeline() *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		RenderDir: a.cfg.Render.Dir,
		Logger:    a.log,
	})
}

// buildStack opens the ledger, connects the message channels and wires the
// hunt service. front, when not nil, receives every message first.
func (a *app) buildStack(ctx context.Context, front notify.Sender) (*stack, error) {
	st := &stack{}
	ok := false
	defer func() {
		if !ok {
			st.Close()
		}
	}()

	store, err := ledger.Open(a.cfg.Storage.Driver, a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	st.closers = append(st.closers, func() {
		if err := store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close ledger")
		}
	})

	senders, err := a.senders(ctx, st)
	if err != nil {
		return nil, err
	}
	if front != nil {
		senders = append(notify.Fanout{front}, senders...)
	}

	m, err := a.startMetrics(st)
	if err != nil {
		return nil, err
	}

	runner := worker.NewRunner(a.executor(), worker.RunnerOptions{
		Timeout: a.cfg.Worker.Timeout,
		Reclaim: a.cfg.Worker.Reclaim,
		Logger:  a.log,
		Metrics: m,
	})
	st.closers = append(st.closers, runner.Wait)

	st.svc = hunt.NewService(runner, store, senders, verify.NewArithmetic(a.cfg.Verify.TTL), hunt.Options{
		ClaimLimit: a.cfg.Hunt.ClaimLimit,
		Logger:     a.log,
		Metrics:    m,
	})

	a.log.Info().
		Str("storage", a.cfg.Storage.Driver).
		Str("worker_mode", a.cfg.Worker.Mode).
		Dur("timeout", a.cfg.Worker.Timeout).
		Int("senders", len(senders)).
		Msg("hunt ready")

	ok = true
	return st, nil
}

func (a *app) executor() worker.Executor {
	if a.cfg.Worker.Mode == config.WorkerModeProcess {
		return &worker.ProcessExecutor{
			Args:   a.workerArgs(),
			Logger: a.log,
		}
	}
	return worker.NewGoroutineExecutor(a.newPipeline())
}

// senders returns the log sender plus the optional shoutrrr and MQTT
// channels.
func (a *app) senders(ctx context.Context, st *stack) (notify.Fanout, error) {
	out := notify.Fanout{notify.NewLog(a.log)}

	if len(a.cfg.Notify.URLs) > 0 {
		sh, err := notify.NewShoutrrr(a.cfg.Notify.URLs, a.cfg.Notify.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to set up notification services: %w", err)
		}
		out = append(out, sh)
	}

	if a.cfg.MQTT.Broker != "" {
		sender, client, err := notify.ConnectMQTT(ctx, notify.MQTTConfig{
			Broker:   a.cfg.MQTT.Broker,
			Topic:    a.cfg.MQTT.Topic,
			ClientID: a.cfg.MQTT.ClientID,
			Username: a.cfg.MQTT.Username,
			Password: a.cfg.MQTT.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		st.closers = append(st.closers, func() { disconnect(client) })
		out = append(out, sender)
	}
	return out, nil
}

func disconnect(client mqtt.Client) {
	client.Disconnect(250)
}

// startMetrics registers the hunt metrics and, when configured, serves them.
func (a *app) startMetrics(st *stack) (*metrics.Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	if a.cfg.Metrics.Listen == "" {
		return m, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("listen", srv.Addr).Msg("metrics server failed")
		}
	}()
	st.closers = append(st.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	a.log.Info().Str("listen", srv.Addr).Msg("serving metrics")
	return m, nil
}
