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
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/backoffice/config"
	"github.com/ledgerdesk/backoffice/model"
)

const webhookURL = "https://hooks.example.com/backoffice"

func fastWebhookRetries(t *testing.T) {
	t.Helper()
	original := webhookBackoff
	webhookBackoff = func() backoff.BackOff {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = time.Millisecond
		policy.MaxInterval = 5 * time.Millisecond
		policy.MaxElapsedTime = time.Second
		return policy
	}
	t.Cleanup(func() { webhookBackoff = original })
}

func webhookTask(t *testing.T, hook NewWebhook) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(hook)
	require.NoError(t, err)
	return asynq.NewTask(TypeWebhook, payload)
}

func asynqKeys(keys []string) []string {
	var matched []string
	for _, key := range keys {
		if strings.HasPrefix(key, "asynq:") {
			matched = append(matched, key)
		}
	}
	return matched
}

func TestDecisionEvent(t *testing.T) {
	assert.Equal(t, "loan.approved", decisionEvent("loan", model.LoanApproved))
	assert.Equal(t, "service_request.rejected", decisionEvent("service_request", model.RequestRejected))
}

func TestSendWebhook_NoURLIsNoop(t *testing.T) {
	b, _, mr := newMemoryBackoffice(t)

	err := b.SendWebhook(context.Background(), NewWebhook{Event: "loan.approved"})
	require.NoError(t, err)
	assert.Empty(t, asynqKeys(mr.Keys()))
}

func TestSendWebhook_Enqueues(t *testing.T) {
	b, _, mr := newMemoryBackoffice(t)
	b.config.Notification.Webhook.Url = webhookURL

	err := b.SendWebhook(context.Background(), NewWebhook{Event: "loan.approved", Payload: map[string]string{"loan_id": "LOAN123456"}})
	require.NoError(t, err)
	assert.NotEmpty(t, asynqKeys(mr.Keys()))
}

func TestApplyEntry_PublishesWebhook(t *testing.T) {
	b, _, mr := newMemoryBackoffice(t)
	b.config.Notification.Webhook.Url = webhookURL
	account := fundedAccount(t, b, "")

	_, err := b.ApplyEntry(context.Background(), account.AccountID, model.EntryDeposit, decimal.NewFromInt(10), "", "")
	require.NoError(t, err)

	keys := asynqKeys(mr.Keys())
	require.NotEmpty(t, keys)
	found := false
	for _, key := range keys {
		if strings.Contains(key, config.DEFAULT_WEBHOOK_QUEUE) {
			found = true
		}
	}
	assert.True(t, found, "no task in %s: %v", config.DEFAULT_WEBHOOK_QUEUE, keys)
}

func TestProcessWebhook_Delivers(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var received NewWebhook
	httpmock.RegisterResponder(http.MethodPost, webhookURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "secret", req.Header.Get("X-Signature"))
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
	})
	config.MockConfig(&config.Configuration{Notification: config.Notification{
		Webhook: config.WebhookConfig{Url: webhookURL, Headers: map[string]string{"X-Signature": "secret"}},
	}})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{
		Event:   "service_request.approved",
		Payload: map[string]string{"request_id": "REQ123456"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, "service_request.approved", received.Event)
}

func TestProcessWebhook_RetriesServerErrors(t *testing.T) {
	fastWebhookRetries(t)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, webhookURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down").
			Then(httpmock.NewStringResponder(http.StatusOK, "ok")))
	config.MockConfig(&config.Configuration{Notification: config.Notification{Webhook: config.WebhookConfig{Url: webhookURL}}})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: "loan.approved"}))
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestProcessWebhook_ClientErrorIsNotRetried(t *testing.T) {
	fastWebhookRetries(t)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, webhookURL, httpmock.NewStringResponder(http.StatusBadRequest, "bad"))
	config.MockConfig(&config.Configuration{Notification: config.Notification{Webhook: config.WebhookConfig{Url: webhookURL}}})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: "loan.approved"}))
	assert.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestProcessWebhook_BadPayloadSkipsRetry(t *testing.T) {
	config.MockConfig(&config.Configuration{Notification: config.Notification{Webhook: config.WebhookConfig{Url: webhookURL}}})

	err := ProcessWebhook(context.Background(), asynq.NewTask(TypeWebhook, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessWebhook_NoURL(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	config.MockConfig(&config.Configuration{})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: "loan.approved"}))
	assert.NoError(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestProcessOverdueSweep(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	approvedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return approvedAt }

	loan := applyForLoan(t, b, "", "1000", "10", 3)
	_, err := b.DecideLoan(context.Background(), loan.LoanID, "approve", "officer-1")
	require.NoError(t, err)

	asOf := approvedAt.AddDate(0, 0, 31)
	task, err := NewOverdueSweepTask(b.config, &asOf)
	require.NoError(t, err)
	require.NoError(t, b.ProcessOverdueSweep(context.Background(), task))

	schedule, err := b.GetSchedule(context.Background(), loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, model.InstallmentOverdue, schedule[0].Status)
	assert.Equal(t, model.InstallmentPending, schedule[1].Status)

	err = b.ProcessOverdueSweep(context.Background(), asynq.NewTask(TypeOverdueSweep, []byte("nope")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestEnqueueOverdueSweep(t *testing.T) {
	b, _, mr := newMemoryBackoffice(t)

	require.NoError(t, b.queue.EnqueueOverdueSweep(context.Background(), nil))
	found := false
	for _, key := range asynqKeys(mr.Keys()) {
		if strings.Contains(key, config.DEFAULT_MAINTENANCE_QUEUE) {
			found = true
		}
	}
	assert.True(t, found)
}
