// internal/logging/logger.go
package logging

import (
	"fmt"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Env       string
	SentryDSN string
	Component string
}

// New builds the process logger. Production gets JSON output; anything else the
// development console encoder. When a Sentry DSN is set, error-level entries are
// also reported there. The returned flush func must run before exit.
func New(opts Options) (*zap.Logger, func(), error) {
	var (
		logger *zap.Logger
		err    error
	)
	if opts.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if opts.Component != "" {
		logger = logger.With(zap.String("component", opts.Component))
	}

	flush := func() { _ = logger.Sync() }
	if opts.SentryDSN == "" {
		return logger, flush, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.SentryDSN,
		Environment: opts.Env,
		Debug:       opts.Env != "production",
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	// Attach sentry to zap so we can do automatic error capturing
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": opts.Component,
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to attach sentry core: %w", err)
	}
	logger = zapsentry.AttachCoreToLogger(core, logger)

	return logger, func() {
		_ = logger.Sync()
		sentry.Flush(2 * time.Second)
	}, nil
}
