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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ledgerdesk/backoffice/config"
	"github.com/ledgerdesk/backoffice/internal/notification"
	"github.com/ledgerdesk/backoffice/internal/request"
)

// NewWebhook is the body posted to the configured webhook endpoint.
type NewWebhook struct {
	Event   string      `json:"event"` // e.g. loan.approved, service_request.rejected, entry.applied
	Payload interface{} `json:"data"`
}

const (
	EventEntryApplied       = "entry.applied"
	EventInstallmentOverdue = "installment.overdue"
)

func decisionEvent(resource string, status interface{}) string {
	return fmt.Sprintf("%s.%s", resource, status)
}

// SendWebhook queues a webhook for delivery by the worker. It is a no-op when no
// webhook URL is configured.
func (b *Backoffice) SendWebhook(ctx context.Context, hook NewWebhook) error {
	if b.config.Notification.Webhook.Url == "" {
		return nil
	}
	return b.queue.EnqueueWebhook(ctx, hook)
}

// publish reports an already committed change. Failures are surfaced to operators
// and never to the caller.
func (b *Backoffice) publish(ctx context.Context, event string, payload interface{}) {
	if err := b.SendWebhook(ctx, NewWebhook{Event: event, Payload: payload}); err != nil {
		notification.NotifyError(fmt.Errorf("failed to queue %s webhook: %w", event, err))
	}
}

var webhookBackoff = func() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	return policy
}

func deliverWebhook(ctx context.Context, conf *config.Configuration, hook NewWebhook) error {
	return backoff.Retry(func() error {
		err := request.PostJSON(ctx, conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, hook)
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError &&
			statusErr.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(webhookBackoff(), ctx))
}

// ProcessWebhook is the worker handler for TypeWebhook tasks.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var hook NewWebhook
	if err := json.Unmarshal(task.Payload(), &hook); err != nil {
		logrus.Errorf("Error unmarshaling webhook payload: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logrus.Infof("Processing webhook: %s", hook.Event)
	if err := deliverWebhook(ctx, conf, hook); err != nil {
		logrus.Errorf("webhook %s delivery failed: %v", hook.Event, err)
		return err
	}
	return nil
}

// ProcessOverdueSweep is the worker handler for TypeOverdueSweep tasks.
func (b *Backoffice) ProcessOverdueSweep(ctx context.Context, task *asynq.Task) error {
	var payload OverdueSweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}

	asOf := b.now()
	if payload.AsOf != nil {
		asOf = *payload.AsOf
	}
	_, err := b.MarkOverdueInstallments(ctx, asOf)
	return err
}
