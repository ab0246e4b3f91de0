package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
	"github.com/mxk/kinesisaudit/audit"
	"github.com/mxk/kinesisaudit/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(&cfg.App)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "aws config load")
	}
	ac, err := audit.Ident(ctx, sts.NewFromConfig(awsCfg), awsCfg.Region)
	if err != nil {
		return err
	}
	checks, err := audit.SelectChecks(cfg.Audit.Checks)
	if err != nil {
		return err
	}
	sink, closeSink, err := newSink(&cfg.Sink, awsCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeSink(); cerr != nil {
			log.Error("sink close failed", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	log = log.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("account", ac.ID),
		zap.String("region", ac.Region),
	)
	a := audit.New(ac, kinesis.NewFromConfig(awsCfg), sink, log, audit.Opts{
		PageLimit:   int32(cfg.Audit.PageLimit),
		Paginate:    cfg.Audit.Paginate,
		ProductName: cfg.Audit.ProductName,
		Checks:      checks,
	})
	sum, err := a.Run(ctx)
	log.Info("audit finished", zap.Object("summary", sum), zap.Error(err))
	return err
}

// newSink returns the configured finding sink and a function that flushes it.
func newSink(c *config.SinkConfig, awsCfg aws.Config) (audit.Sink, func() error, error) {
	if c.Kind == config.SinkStdout {
		w, err := audit.NewWriter(os.Stdout, c.Format)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	}
	return audit.NewSecurityHub(securityhub.NewFromConfig(awsCfg)), func() error { return nil }, nil
}

// newLogger builds a JSON logger for production and a console logger for
// development.
func newLogger(c *config.AppConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid LOG_LEVEL %q", c.LogLevel)
	}
	zc := zap.NewProductionConfig()
	if c.Environment == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	// Findings go to stdout in dry-run mode
	zc.OutputPaths = []string{"stderr"}
	log, err := zc.Build()
	return log, errors.WithStack(err)
}
