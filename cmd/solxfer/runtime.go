package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"

	"github.com/brojonat/solxfer/service/config"
	"github.com/brojonat/solxfer/service/db"
	"github.com/brojonat/solxfer/service/metrics"
	natspkg "github.com/brojonat/solxfer/service/nats"
	"github.com/brojonat/solxfer/service/solana"
	"github.com/urfave/cli/v2"
)

// runtime holds everything a command needs. It is built once per invocation
// and read-only afterwards.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  *solana.Client
	signer  *solana.KeypairSigner

	closers []func()
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.Path("config"))
	if err != nil {
		return nil, err
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	signer, err := solana.LoadKeypairSigner(cfg.KeyPath)
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics(nil)
	client := solana.NewClient(solana.NewRPCClient(cfg.Endpoint), endpointLabel(cfg.Endpoint), m, logger).
		WithCommitment(cfg.CommitmentType()).
		WithSymbols(cfg.Tokens)

	logger.Debug("runtime initialized",
		"endpoint", cfg.Endpoint,
		"signer", signer.PublicKey().String(),
		"commitment", cfg.Commitment,
	)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		client:  client,
		signer:  signer,
	}, nil
}

// executor builds the transaction executor for the configured endpoint.
func (r *runtime) executor(skipPreflight bool) *solana.Executor {
	return solana.NewExecutor(r.client.RPC(), r.signer, solana.ExecutorConfig{
		Commitment:     r.cfg.CommitmentType(),
		PollInterval:   r.cfg.PollIntervalDuration(),
		ConfirmTimeout: r.cfg.ConfirmTimeoutDuration(),
		SkipPreflight:  skipPreflight,
	}, r.metrics, r.logger)
}

// store connects to the transfer history database, or returns nil when
// none is configured.
func (r *runtime) store(ctx context.Context) (*db.Store, error) {
	if r.cfg.DatabaseURL == "" {
		return nil, nil
	}
	pool, err := db.Connect(ctx, r.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, pool.Close)

	store := db.NewStore(pool, r.metrics)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// publisher connects to NATS, or returns nil when none is configured.
func (r *runtime) publisher(ctx context.Context) (*natspkg.JetStreamPublisher, error) {
	if r.cfg.NATSURL == "" {
		return nil, nil
	}
	p, err := natspkg.NewPublisher(ctx, r.cfg.NATSURL, r.metrics, r.logger)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, func() { p.Close() })
	return p, nil
}

// Close releases connections and writes the metrics textfile if configured.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	if r.cfg.MetricsTextfile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsTextfile); err != nil {
			r.logger.Error("failed to write metrics", "error", err)
		}
	}
}

// endpointLabel reduces an RPC URL to its host for metric labels, so that
// API keys in paths or queries never end up in metrics.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
