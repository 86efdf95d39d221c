// Command reindex rebuilds the services and categories search indexes from
// the database. It runs once from the command line, or as a Lambda handler
// when AWS_LAMBDA_FUNCTION_NAME is set (e.g. on an EventBridge schedule).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/pflag"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("reindex", pflag.ContinueOnError)
	flagSet.DurationVar(&timeout, "timeout", 10*time.Minute, "abort the resync after this long")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: reindex [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	logger.Set(log)
	defer log.Sync()

	indexSync, cleanup, err := newSearchSync(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(func(ctx context.Context) (*services.ReindexReport, error) {
			return indexSync.Reindex(ctx)
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := indexSync.Reindex(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d services and %d categories in %s\n",
		report.Services, report.Categories, report.Duration.Round(time.Millisecond))
	return nil
}

// newSearchSync connects the database, the hosted index and, when
// configured, the redis lock that keeps resyncs from overlapping
func newSearchSync(cfg *config.Config, log logger.Logger) (*services.SearchSync, func(), error) {
	if !cfg.HasAlgolia() {
		return nil, nil, errors.New("ALGOLIA_APP_ID and ALGOLIA_API_KEY are required to reindex")
	}

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	var (
		locker  services.Locker = services.NoopLocker{}
		cleanup                 = func() {}
	)
	if cfg.RedisURL != "" {
		redisLocker, err := services.NewRedisLockerFromURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		locker = redisLocker
		cleanup = func() {
			if err := redisLocker.Close(); err != nil {
				log.Warn("failed to close redis client", logger.Error(err))
			}
		}
	} else {
		log.Warn("REDIS_URL not set, concurrent resyncs are not prevented")
	}

	index := services.NewAlgoliaIndex(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey)
	return services.NewSearchSync(config.GetDB(), index, locker, log), cleanup, nil
}
