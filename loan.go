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
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

const scheduleCacheTTL = 10 * time.Minute

func scheduleCacheKey(loanID string) string {
	return "schedule:" + loanID
}

// ApplyForLoan stores a pending loan application.
func (b *Backoffice) ApplyForLoan(ctx context.Context, loan model.Loan) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "ApplyForLoan")
	defer span.End()

	if strings.TrimSpace(loan.BorrowerID) == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "borrower_id is required", nil)
	}
	loan.ApplyDefaults()
	if err := loan.ValidateParameters(); err != nil {
		return nil, err
	}
	if loan.AccountID != "" {
		if _, err := b.datasource.GetAccountByID(ctx, loan.AccountID); err != nil {
			return nil, err
		}
	}

	created, err := b.datasource.CreateLoan(ctx, loan)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	b.publish(ctx, decisionEvent("loan", created.Status), created)
	return &created, nil
}

func (b *Backoffice) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	return b.datasource.GetLoan(ctx, id)
}

// DecideLoan approves or rejects a pending loan. Approval writes the decision and the
// whole repayment schedule in one transaction, so a loan is never approved without
// its schedule and a schedule is created at most once.
func (b *Backoffice) DecideLoan(ctx context.Context, loanID, action, actor string) (*model.LoanDecision, error) {
	ctx, span := tracer.Start(ctx, "DecideLoan", trace.WithAttributes(
		attribute.String("loan.id", loanID),
		attribute.String("loan.action", action),
	))
	defer span.End()

	decision, err := model.ParseAction(action)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(actor) == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "acting user is required", nil)
	}

	result := &model.LoanDecision{}
	err = b.datasource.WithinTx(ctx, func(tx database.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := loan.Decide(decision, actor, b.now()); err != nil {
			return err
		}
		if err := tx.SaveLoanStatus(ctx, loan, model.LoanPending); err != nil {
			return err
		}

		if loan.Status == model.LoanApproved {
			installments, err := model.BuildSchedule(loan)
			if err != nil {
				return err
			}
			if err := tx.InsertInstallments(ctx, installments); err != nil {
				return err
			}
			result.ScheduleCreated = true
		}
		result.Loan = loan
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	b.evictSchedule(ctx, loanID)
	logrus.Infof("loan %s %s by %s", loanID, result.Loan.Status, actor)
	b.publish(ctx, decisionEvent("loan", result.Loan.Status), result)
	return result, nil
}

// GetSchedule returns the installments of a loan ordered by EMI number. Loans that
// were never approved have an empty schedule.
func (b *Backoffice) GetSchedule(ctx context.Context, loanID string) ([]model.Installment, error) {
	ctx, span := tracer.Start(ctx, "GetSchedule")
	defer span.End()

	var cached []model.Installment
	found, err := b.cache.Get(ctx, scheduleCacheKey(loanID), &cached)
	if err != nil {
		logrus.Warnf("schedule cache read for loan %s failed: %v", loanID, err)
	}
	if found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	if _, err := b.datasource.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	installments, err := b.datasource.GetInstallments(ctx, loanID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(installments) == 0 {
		return []model.Installment{}, nil
	}
	if err := b.cache.Set(ctx, scheduleCacheKey(loanID), installments, scheduleCacheTTL); err != nil {
		logrus.Warnf("schedule cache write for loan %s failed: %v", loanID, err)
	}
	return installments, nil
}

// DisburseLoan releases an approved loan. When the loan names an account, the
// principal is credited to it in the same transaction as the status change.
func (b *Backoffice) DisburseLoan(ctx context.Context, loanID, actor string) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "DisburseLoan", trace.WithAttributes(attribute.String("loan.id", loanID)))
	defer span.End()

	current, err := b.datasource.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.LoanApproved {
		return nil, current.Disburse()
	}

	var (
		disbursed *model.Loan
		entry     *model.LedgerEntry
	)
	run := func() error {
		return b.datasource.WithinTx(ctx, func(tx database.Tx) error {
			loan, err := tx.LockLoan(ctx, loanID)
			if err != nil {
				return err
			}
			if err := loan.Disburse(); err != nil {
				return err
			}
			if loan.AccountID != "" {
				entry, err = b.applyEntryTx(ctx, tx, loan.AccountID, model.EntryLoanDisbursement, loan.Amount,
					loan.LoanID, "loan disbursement")
				if err != nil {
					return err
				}
			}
			if err := tx.SaveLoanStatus(ctx, loan, model.LoanApproved); err != nil {
				return err
			}
			disbursed = loan
			return nil
		})
	}

	if current.AccountID != "" {
		err = b.withAccountLock(ctx, current.AccountID, run)
	} else {
		err = run()
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.Infof("loan %s disbursed by %s", loanID, actor)
	b.publish(ctx, decisionEvent("loan", disbursed.Status), disbursed)
	if entry != nil {
		b.publish(ctx, EventEntryApplied, entry)
	}
	return disbursed, nil
}

// CompleteLoan closes a disbursed loan.
func (b *Backoffice) CompleteLoan(ctx context.Context, loanID, actor string) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "CompleteLoan", trace.WithAttributes(attribute.String("loan.id", loanID)))
	defer span.End()

	var completed *model.Loan
	err := b.datasource.WithinTx(ctx, func(tx database.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := loan.Complete(); err != nil {
			return err
		}
		if err := tx.SaveLoanStatus(ctx, loan, model.LoanDisbursed); err != nil {
			return err
		}
		completed = loan
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.Infof("loan %s completed by %s", loanID, actor)
	b.publish(ctx, decisionEvent("loan", completed.Status), completed)
	return completed, nil
}

// MarkOverdueInstallments flips pending installments due before asOf to overdue and
// returns the loans that were touched.
func (b *Backoffice) MarkOverdueInstallments(ctx context.Context, asOf time.Time) ([]string, error) {
	ctx, span := tracer.Start(ctx, "MarkOverdueInstallments")
	defer span.End()

	loanIDs, err := b.datasource.MarkOverdueInstallments(ctx, asOf)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, loanID := range loanIDs {
		b.evictSchedule(ctx, loanID)
		b.publish(ctx, EventInstallmentOverdue, map[string]interface{}{"loan_id": loanID, "as_of": asOf})
	}
	if len(loanIDs) > 0 {
		logrus.Infof("marked installments overdue on %d loans", len(loanIDs))
	}
	return loanIDs, nil
}

func (b *Backoffice) evictSchedule(ctx context.Context, loanID string) {
	if err := b.cache.Delete(ctx, scheduleCacheKey(loanID)); err != nil {
		logrus.Warnf("failed to evict cached schedule for loan %s: %v", loanID, err)
	}
}
