/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/ledgerdesk/backoffice"
	"github.com/ledgerdesk/backoffice/config"
	"github.com/ledgerdesk/backoffice/internal/notification"
	redis_db "github.com/ledgerdesk/backoffice/internal/redis-db"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func initializeQueues(conf *config.Configuration) map[string]int {
	return map[string]int{
		backoffice.WebhookQueue(conf):     3,
		backoffice.MaintenanceQueue(conf): 1,
	}
}

func initializeWorkerServer(conf *config.Configuration, redisOption asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(redisOption, asynq.Config{
		Concurrency: conf.Queue.WorkerConcurrency,
		Queues:      initializeQueues(conf),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logrus.Errorf("task %s failed (attempt %d/%d): %v", task.Type(), retried, maxRetry, err)
			if retried >= maxRetry {
				notification.NotifyError(err)
			}
		}),
	})
}

func initializeTaskHandlers(b *backofficeInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(backoffice.TypeWebhook, backoffice.ProcessWebhook)
	mux.HandleFunc(backoffice.TypeOverdueSweep, b.backoffice.ProcessOverdueSweep)
}

// initializeScheduler registers the periodic overdue sweep. Each run marks
// installments due before the time the task is processed.
func initializeScheduler(conf *config.Configuration, redisOption asynq.RedisClientOpt) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOption, &asynq.SchedulerOpts{Location: time.UTC})

	task, err := backoffice.NewOverdueSweepTask(conf, nil)
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(conf.Queue.OverdueSweepCron, task)
	if err != nil {
		return nil, fmt.Errorf("registering overdue sweep: %w", err)
	}
	logrus.Infof("overdue sweep scheduled (%s) as %s", conf.Queue.OverdueSweepCron, entryID)
	return scheduler, nil
}

func startMonitoring(conf *config.Configuration, redisOption asynq.RedisClientOpt) {
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOption,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			logrus.Errorf("could not start asynqmon server: %v", err)
		}
	}()
}

func workerCommands(b *backofficeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start webhook delivery and maintenance workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conf := b.cnf
			defer func() {
				if err := b.backoffice.Close(); err != nil {
					logrus.Warnf("closing backoffice: %v", err)
				}
			}()

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			redisOption, err := redis_db.QueueOptions(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
			if err != nil {
				return fmt.Errorf("error parsing Redis URL: %v", err)
			}

			scheduler, err := initializeScheduler(conf, redisOption)
			if err != nil {
				return err
			}
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("could not start scheduler: %w", err)
			}
			defer scheduler.Shutdown()

			startMonitoring(conf, redisOption)

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			srv := initializeWorkerServer(conf, redisOption)
			if err := srv.Run(mux); err != nil {
				return fmt.Errorf("could not run worker server: %w", err)
			}
			return nil
		},
	}

	return cmd
}
