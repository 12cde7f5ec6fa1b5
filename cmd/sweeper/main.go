package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"vibelink/core/ratelimit"
	"vibelink/pkg/blobstore"
	"vibelink/pkg/config"
)

const EnvCmd = "env"

// Rate-limit records are only pruned lazily when their client uploads
// again, so one-off clients leave records behind forever. The sweeper
// walks the _ratelimit/ namespace out-of-band and cleans them up.
type SweepRunner struct{}

func (s *SweepRunner) Run(c *cli.Context) error {
	envDir := c.String(EnvCmd)

	cfg := config.Load(envDir)

	var store blobstore.Store

	switch cfg.StoreBackend {
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		minioStore, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}

		store = minioStore

	default:
		localStore, err := blobstore.NewLocalFS(cfg.DataDir)
		if err != nil {
			return err
		}

		store = localStore
	}

	return Sweep(context.Background(), store)
}

func Sweep(ctx context.Context, store blobstore.Store) error {
	records := ratelimit.NewBlobRecordStore(store)
	limiter := ratelimit.NewLimiter(records)

	keys, err := store.List(ctx, "_ratelimit/")
	if err != nil {
		log.Error().Err(err).Msg("failed to list rate limit records")
		return err
	}

	var pruned, deleted int

	now := time.Now()

	for _, key := range keys {
		clientKey := strings.TrimSuffix(strings.TrimPrefix(key, "_ratelimit/"), ".json")

		record, err := records.Fetch(ctx, clientKey)
		if err != nil || record == nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unreadable record")
			continue
		}

		kept, empty := limiter.Prune(record, now)

		if empty {
			if err := store.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to delete stale record")
				continue
			}

			deleted++
			continue
		}

		if len(kept.Uploads) == len(record.Uploads) {
			continue
		}

		if err := records.Save(ctx, clientKey, kept); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to rewrite record")
			continue
		}

		pruned++
	}

	log.Info().
		Int("scanned", len(keys)).
		Int("pruned", pruned).
		Int("deleted", deleted).
		Msg("sweep complete")

	return nil
}

func main() {
	runner := &SweepRunner{}

	app := &cli.App{
		Name:  "vibelink-sweeper",
		Usage: "prune expired rate-limit records from the object store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  EnvCmd,
				Value: "./config/",
				Usage: "directory containing the app env file",
			},
		},
		Action: runner.Run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("sweep failed")
	}
}
