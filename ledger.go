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
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/apierror"
	redlock "github.com/ledgerdesk/backoffice/internal/lock"
	"github.com/ledgerdesk/backoffice/model"
)

// ApplyEntry posts one entry against an account. The balance check, the balance write
// and the entry insert happen under the account lock and inside one transaction, so
// concurrent postings to the same account are applied one at a time.
func (b *Backoffice) ApplyEntry(ctx context.Context, accountID string, kind model.EntryKind, amount decimal.Decimal, reference, description string) (*model.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "ApplyEntry", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("entry.kind", string(kind)),
	))
	defer span.End()

	if !kind.Valid() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown entry kind %q", kind), nil)
	}
	if err := model.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var entry *model.LedgerEntry
	err := b.withAccountLock(ctx, accountID, func() error {
		return b.datasource.WithinTx(ctx, func(tx database.Tx) error {
			var err error
			entry, err = b.applyEntryTx(ctx, tx, accountID, kind, amount, reference, description)
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("entry applied", trace.WithAttributes(attribute.String("entry.id", entry.EntryID)))
	b.publish(ctx, EventEntryApplied, entry)
	return entry, nil
}

// GetLedger returns the entries of an account in the order they were posted.
func (b *Backoffice) GetLedger(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "GetLedger")
	defer span.End()

	if _, err := b.datasource.GetAccountByID(ctx, accountID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return b.datasource.GetEntriesByAccount(ctx, accountID)
}

// applyEntryTx is the single place a balance moves. The caller must hold the account
// lock and tx must still be open.
func (b *Backoffice) applyEntryTx(ctx context.Context, tx database.Tx, accountID string, kind model.EntryKind, amount decimal.Decimal, reference, description string) (*model.LedgerEntry, error) {
	account, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != model.AccountStatusActive {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("account %s is %s and cannot take postings", accountID, account.Status), nil)
	}

	if err := account.Apply(kind, amount); err != nil {
		return nil, err
	}
	if err := tx.SaveAccountBalance(ctx, account); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		EntryID:      model.GenerateUUIDWithSuffix("ent"),
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: account.Balance,
		Reference:    reference,
		Description:  description,
		CreatedAt:    b.now(),
	}
	if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// withAccountLock runs fn while holding the distributed lock for accountID.
func (b *Backoffice) withAccountLock(ctx context.Context, accountID string, fn func() error) error {
	ttl, wait := b.lockTimings()
	locker := redlock.ForAccount(b.redis, accountID)
	if err := locker.WaitLock(ctx, ttl, wait); err != nil {
		if errors.Is(err, redlock.ErrLockHeld) {
			return apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("account %s is busy, try again", accountID), err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apierror.Storage("Failed to acquire account lock", err)
	}

	defer func() {
		// the lock may have expired if fn ran past the ttl, the row lock still held
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := locker.Unlock(unlockCtx); err != nil {
			logrus.Warnf("failed to release lock for account %s: %v", accountID, err)
		}
	}()

	return fn()
}
