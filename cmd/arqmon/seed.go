package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mohans/arqmon/arqmon"
)

var demoFunctions = []string{
	"check_fuel_system",
	"diagnose_navigation_system",
	"test_life_support_system",
	"check_communication_system",
	"analyze_launch_readiness",
}

// enqueueFunc writes one demo job and returns its id.
type enqueueFunc func(ctx context.Context, function string, kwargs map[string]any) (string, error)

func seedCmd() *cobra.Command {
	var (
		count int
		every time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Enqueue demo jobs, once or on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			var enqueue enqueueFunc
			if cfg.Store.Type == "asynq" {
				client := asynq.NewClient(asynqOptions(cfg.Redis))
				defer client.Close()
				enqueue = func(ctx context.Context, function string, kwargs map[string]any) (string, error) {
					payload, err := json.Marshal(kwargs)
					if err != nil {
						return "", err
					}
					info, err := client.EnqueueContext(ctx, asynq.NewTask(function, payload))
					if err != nil {
						return "", err
					}
					return info.Queue + ":" + info.ID, nil
				}
			} else {
				a, err := newApp(cfg, logger.Logger)
				if err != nil {
					return err
				}
				defer a.close()
				client := arqmon.NewClient(a.rdb, arqmon.ClientOptions{Queue: cfg.Store.QueueName})
				enqueue = func(ctx context.Context, function string, kwargs map[string]any) (string, error) {
					return client.Enqueue(ctx, function, nil, kwargs, arqmon.EnqueueOptions{})
				}
			}

			batch := func(ctx context.Context) {
				n := count
				if n <= 0 {
					n = 1 + rand.Intn(5)
				}
				for i := 0; i < n; i++ {
					fn := demoFunctions[rand.Intn(len(demoFunctions))]
					id, err := enqueue(ctx, fn, map[string]any{"is_successful": rand.Intn(2) == 0})
					if err != nil {
						logger.Error("seed job", "function", fn, "error", err)
						continue
					}
					logger.Info("seeded job", "job_id", id, "function", fn)
				}
			}

			if every <= 0 {
				batch(cmd.Context())
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := cron.New()
			if _, err := c.AddFunc(fmt.Sprintf("@every %s", every), func() { batch(ctx) }); err != nil {
				return fmt.Errorf("schedule seeding: %w", err)
			}
			c.Start()
			logger.Info("seeding on schedule", "every", every.String())
			batch(ctx)

			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "jobs per batch; 0 picks 1 to 5 at random")
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the batch on this interval until interrupted")
	return cmd
}
