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
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

// SubmitServiceRequest stores a new pending request.
func (b *Backoffice) SubmitServiceRequest(ctx context.Context, request model.ServiceRequest) (*model.ServiceRequest, error) {
	ctx, span := tracer.Start(ctx, "SubmitServiceRequest")
	defer span.End()

	if strings.TrimSpace(request.RequesterID) == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "requester_id is required", nil)
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if request.AccountID != "" {
		if _, err := b.datasource.GetAccountByID(ctx, request.AccountID); err != nil {
			return nil, err
		}
	}

	created, err := b.datasource.CreateServiceRequest(ctx, request)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	b.publish(ctx, decisionEvent("service_request", created.Status), created)
	return &created, nil
}

func (b *Backoffice) GetServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	return b.datasource.GetServiceRequest(ctx, id)
}

// ProcessServiceRequest applies an administrative decision to a pending request.
// Approving a deposit or withdrawal posts the matching ledger entry in the same
// transaction as the status change; if the posting fails the request stays pending.
// A request leaves pending exactly once, later attempts get ALREADY_PROCESSED.
func (b *Backoffice) ProcessServiceRequest(ctx context.Context, requestID, action, actor, note string) (*model.ServiceRequest, error) {
	ctx, span := tracer.Start(ctx, "ProcessServiceRequest", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("request.action", action),
	))
	defer span.End()

	decision, err := model.ParseAction(action)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(actor) == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "acting user is required", nil)
	}

	current, err := b.datasource.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.RequestPending {
		return nil, apierror.NewAPIError(apierror.ErrAlreadyProcessed,
			fmt.Sprintf("request %s already processed (status %s)", requestID, current.Status), nil)
	}

	var (
		processed *model.ServiceRequest
		entry     *model.LedgerEntry
	)
	run := func() error {
		return b.datasource.WithinTx(ctx, func(tx database.Tx) error {
			locked, err := tx.LockServiceRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if err := locked.Resolve(decision, actor, note, b.now()); err != nil {
				return err
			}

			if kind, amount, ok := locked.Posting(decision); ok {
				entry, err = b.applyEntryTx(ctx, tx, locked.AccountID, kind, amount, locked.RequestID, locked.Description)
				if err != nil {
					return err
				}
			}

			if err := tx.SaveServiceRequestDecision(ctx, locked); err != nil {
				return err
			}
			processed = locked
			return nil
		})
	}

	if _, _, posts := current.Posting(decision); posts {
		err = b.withAccountLock(ctx, current.AccountID, run)
	} else {
		err = run()
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.Infof("service request %s %s by %s", processed.RequestID, processed.Status, actor)
	b.publish(ctx, decisionEvent("service_request", processed.Status), processed)
	if entry != nil {
		b.publish(ctx, EventEntryApplied, entry)
	}
	return processed, nil
}
