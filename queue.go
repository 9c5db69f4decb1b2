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

package backoffice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ledgerdesk/backoffice/config"
	redis_db "github.com/ledgerdesk/backoffice/internal/redis-db"
)

// Task types handled by the worker process.
const (
	TypeWebhook      = "backoffice:webhook"
	TypeOverdueSweep = "backoffice:overdue_sweep"
)

// Queue enqueues background work onto asynq.
type Queue struct {
	Client *asynq.Client
	config *config.Configuration
}

// OverdueSweepPayload lets a sweep be pinned to a cut-off. An empty payload sweeps up
// to the time the task runs.
type OverdueSweepPayload struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := redis_db.QueueOptions(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client: asynq.NewClient(queueOptions),
		config: conf,
	}, nil
}

// WebhookQueue returns the configured webhook queue name.
func WebhookQueue(conf *config.Configuration) string {
	if conf.Queue.WebhookQueue == "" {
		return config.DEFAULT_WEBHOOK_QUEUE
	}
	return conf.Queue.WebhookQueue
}

// MaintenanceQueue returns the configured queue for scheduled maintenance tasks.
func MaintenanceQueue(conf *config.Configuration) string {
	if conf.Queue.MaintenanceQueue == "" {
		return config.DEFAULT_MAINTENANCE_QUEUE
	}
	return conf.Queue.MaintenanceQueue
}

func (q *Queue) EnqueueWebhook(ctx context.Context, hook NewWebhook) error {
	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeWebhook, payload, asynq.Queue(WebhookQueue(q.config)), asynq.MaxRetry(5))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		logrus.Errorf("failed to enqueue %s webhook: %v", hook.Event, err)
		return err
	}
	logrus.Debugf("webhook %s queued as task %s", hook.Event, info.ID)
	return nil
}

// NewOverdueSweepTask builds the task the scheduler registers. A nil asOf sweeps up
// to the time the task is processed.
func NewOverdueSweepTask(conf *config.Configuration, asOf *time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(OverdueSweepPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOverdueSweep, payload, asynq.Queue(MaintenanceQueue(conf)), asynq.MaxRetry(3)), nil
}

func (q *Queue) EnqueueOverdueSweep(ctx context.Context, asOf *time.Time) error {
	task, err := NewOverdueSweepTask(q.config, asOf)
	if err != nil {
		return err
	}
	_, err = q.Client.EnqueueContext(ctx, task)
	return err
}

func (q *Queue) Close() error {
	return q.Client.Close()
}
