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

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

func openAccount(t *testing.T, s *Store, balance string) model.Account {
	t.Helper()
	ctx := context.Background()
	account, err := s.CreateAccount(ctx, model.Account{OwnerID: "owner-1", Type: model.AccountTypeSavings})
	require.NoError(t, err)
	if balance != "" {
		require.NoError(t, post(ctx, s, account.AccountID, model.EntryDeposit, decimal.RequireFromString(balance)))
	}
	return account
}

func post(ctx context.Context, s *Store, accountID string, kind model.EntryKind, amount decimal.Decimal) error {
	return s.WithinTx(ctx, func(tx database.Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := account.Apply(kind, amount); err != nil {
			return err
		}
		if err := tx.SaveAccountBalance(ctx, account); err != nil {
			return err
		}
		return tx.InsertLedgerEntry(ctx, &model.LedgerEntry{
			AccountID:    accountID,
			Kind:         kind,
			Amount:       amount,
			BalanceAfter: account.Balance,
		})
	})
}

func TestCreateAndGetAccount(t *testing.T) {
	s := NewStore()
	account := openAccount(t, s, "")

	got, err := s.GetAccountByID(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusActive, got.Status)
	assert.True(t, got.Balance.IsZero())

	_, err = s.GetAccountByID(context.Background(), "BNK0000000000")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestWithinTx_CommitsTogether(t *testing.T) {
	s := NewStore()
	account := openAccount(t, s, "100.00")

	require.NoError(t, post(context.Background(), s, account.AccountID, model.EntryWithdrawal, decimal.RequireFromString("40.00")))

	got, err := s.GetAccountByID(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("60").Equal(got.Balance))
	assert.Equal(t, int64(2), got.Version)

	entries, err := s.GetEntriesByAccount(context.Background(), account.AccountID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, got.Balance.Equal(model.SumEntries(entries)))
	assert.True(t, entries[1].BalanceAfter.Equal(got.Balance))
}

func TestWithinTx_ErrorDiscardsStagedWrites(t *testing.T) {
	s := NewStore()
	account := openAccount(t, s, "100.00")
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx database.Tx) error {
		locked, err := tx.LockAccount(ctx, account.AccountID)
		require.NoError(t, err)
		require.NoError(t, locked.Apply(model.EntryDeposit, decimal.NewFromInt(50)))
		require.NoError(t, tx.SaveAccountBalance(ctx, locked))
		require.NoError(t, tx.InsertLedgerEntry(ctx, &model.LedgerEntry{AccountID: account.AccountID, Kind: model.EntryDeposit, Amount: decimal.NewFromInt(50)}))

		staged, err := tx.LockAccount(ctx, account.AccountID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(150).Equal(staged.Balance))
		return boom
	})
	assert.Equal(t, boom, err)

	got, _ := s.GetAccountByID(ctx, account.AccountID)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))
	entries, _ := s.GetEntriesByAccount(ctx, account.AccountID)
	assert.Len(t, entries, 1)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WithinTx(ctx, func(tx database.Tx) error { return nil })
	assert.True(t, apierror.Is(err, apierror.ErrStorageUnavailable))
}

func TestSaveAccountBalance_StaleVersion(t *testing.T) {
	s := NewStore()
	account := openAccount(t, s, "10.00")
	ctx := context.Background()

	stale := account
	err := s.WithinTx(ctx, func(tx database.Tx) error {
		stale.Balance = decimal.NewFromInt(999)
		return tx.SaveAccountBalance(ctx, &stale)
	})
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	s := NewStore()
	account := openAccount(t, s, "100.00")
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 25)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- post(ctx, s, account.AccountID, model.EntryWithdrawal, decimal.NewFromInt(10))
		}()
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case apierror.Is(err, apierror.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, insufficient)

	got, _ := s.GetAccountByID(ctx, account.AccountID)
	assert.True(t, got.Balance.IsZero())
	entries, _ := s.GetEntriesByAccount(ctx, account.AccountID)
	assert.Len(t, entries, 11)
	assert.True(t, model.SumEntries(entries).IsZero())
}

func TestServiceRequestDecisionIsExactlyOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	request, err := s.CreateServiceRequest(ctx, model.ServiceRequest{RequesterID: "cust-1", Type: model.RequestOther})
	require.NoError(t, err)

	decide := func(action model.Action, actor string) error {
		return s.WithinTx(ctx, func(tx database.Tx) error {
			locked, err := tx.LockServiceRequest(ctx, request.RequestID)
			if err != nil {
				return err
			}
			if err := locked.Resolve(action, actor, "", time.Now()); err != nil {
				return err
			}
			return tx.SaveServiceRequestDecision(ctx, locked)
		})
	}

	require.NoError(t, decide(model.ActionComplete, "admin-1"))
	assert.True(t, apierror.Is(decide(model.ActionReject, "admin-2"), apierror.ErrAlreadyProcessed))

	got, err := s.GetServiceRequest(ctx, request.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCompleted, got.Status)
	assert.Equal(t, "admin-1", got.ProcessedBy)
}

func TestLoanScheduleAndOverdueSweep(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	loan, err := s.CreateLoan(ctx, model.Loan{
		BorrowerID:     "cust-2",
		Amount:         decimal.NewFromInt(3000),
		InterestRate:   decimal.Zero,
		DurationMonths: 3,
	})
	require.NoError(t, err)

	approvedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err = s.WithinTx(ctx, func(tx database.Tx) error {
		locked, err := tx.LockLoan(ctx, loan.LoanID)
		if err != nil {
			return err
		}
		if err := locked.Decide(model.ActionApprove, "admin-1", approvedAt); err != nil {
			return err
		}
		if err := tx.SaveLoanStatus(ctx, locked, model.LoanPending); err != nil {
			return err
		}
		schedule, err := model.BuildSchedule(locked)
		if err != nil {
			return err
		}
		return tx.InsertInstallments(ctx, schedule)
	})
	require.NoError(t, err)

	installments, err := s.GetInstallments(ctx, loan.LoanID)
	require.NoError(t, err)
	require.Len(t, installments, 3)

	err = s.WithinTx(ctx, func(tx database.Tx) error {
		return tx.InsertInstallments(ctx, installments)
	})
	assert.True(t, apierror.Is(err, apierror.ErrConflict))

	loanIDs, err := s.MarkOverdueInstallments(ctx, approvedAt.AddDate(0, 0, 61))
	require.NoError(t, err)
	assert.Equal(t, []string{loan.LoanID}, loanIDs)

	installments, _ = s.GetInstallments(ctx, loan.LoanID)
	assert.Equal(t, model.InstallmentOverdue, installments[0].Status)
	assert.Equal(t, model.InstallmentOverdue, installments[1].Status)
	assert.Equal(t, model.InstallmentPending, installments[2].Status)

	loanIDs, err = s.MarkOverdueInstallments(ctx, approvedAt.AddDate(0, 0, 61))
	require.NoError(t, err)
	assert.Empty(t, loanIDs)
}
