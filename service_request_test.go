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
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

var serviceRequestRowColumns = []string{"request_id", "requester_id", "request_type", "account_id", "amount", "description",
	"status", "admin_note", "created_at", "processed_at", "processed_by"}

func submitRequest(t *testing.T, b *Backoffice, requestType model.RequestType, accountID, amount string) *model.ServiceRequest {
	t.Helper()
	request := model.ServiceRequest{
		RequesterID: gofakeit.UUID(),
		Type:        requestType,
		AccountID:   accountID,
		Description: gofakeit.Sentence(5),
	}
	if amount != "" {
		value := decimal.RequireFromString(amount)
		request.Amount = &value
	}
	created, err := b.SubmitServiceRequest(context.Background(), request)
	require.NoError(t, err)
	return created
}

func TestSubmitServiceRequest(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "")

	request := submitRequest(t, b, model.RequestDeposit, account.AccountID, "500.00")
	assert.Regexp(t, `^REQ\d{6}$`, request.RequestID)
	assert.Equal(t, model.RequestPending, request.Status)
	assert.Nil(t, request.ProcessedAt)

	fetched, err := b.GetServiceRequest(context.Background(), request.RequestID)
	require.NoError(t, err)
	assert.Equal(t, request.RequestID, fetched.RequestID)
}

func TestSubmitServiceRequest_Validation(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	amount := decimal.NewFromInt(10)

	tests := []struct {
		name    string
		request model.ServiceRequest
		code    apierror.ErrorCode
	}{
		{"missing requester", model.ServiceRequest{Type: model.RequestOther}, apierror.ErrInvalidInput},
		{"unknown type", model.ServiceRequest{RequesterID: "cust-1", Type: "refund"}, apierror.ErrInvalidInput},
		{"withdrawal without account", model.ServiceRequest{RequesterID: "cust-1", Type: model.RequestWithdrawal, Amount: &amount}, apierror.ErrInvalidInput},
		{"unknown account", model.ServiceRequest{RequesterID: "cust-1", Type: model.RequestDeposit, AccountID: "BNK0000000000", Amount: &amount}, apierror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.SubmitServiceRequest(context.Background(), tt.request)
			assert.True(t, apierror.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestProcessServiceRequest_ApproveDeposit(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "")
	request := submitRequest(t, b, model.RequestDeposit, account.AccountID, "500.00")

	processed, err := b.ProcessServiceRequest(context.Background(), request.RequestID, "approve", "admin-7", "verified slip")
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, processed.Status)
	assert.Equal(t, "admin-7", processed.ProcessedBy)
	assert.Equal(t, "verified slip", processed.AdminNote)
	require.NotNil(t, processed.ProcessedAt)

	updated, err := b.GetAccount(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("500.00").Equal(updated.Balance))

	entries, err := b.GetLedger(context.Background(), account.AccountID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.EntryDeposit, entries[0].Kind)
	assert.Equal(t, request.RequestID, entries[0].Reference)
}

func TestProcessServiceRequest_WithdrawalInsufficientFunds(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "100.00")
	request := submitRequest(t, b, model.RequestWithdrawal, account.AccountID, "150.00")

	_, err := b.ProcessServiceRequest(context.Background(), request.RequestID, "approve", "admin-7", "")
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds))

	stored, err := b.GetServiceRequest(context.Background(), request.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, stored.Status)
	assert.Empty(t, stored.ProcessedBy)
	assert.Nil(t, stored.ProcessedAt)

	entries, err := b.GetLedger(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assertLedgerMatchesBalance(t, b, account.AccountID)
}

func TestProcessServiceRequest_ApproveWithdrawal(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "100.00")
	request := submitRequest(t, b, model.RequestWithdrawal, account.AccountID, "40.00")

	_, err := b.ProcessServiceRequest(context.Background(), request.RequestID, "approve", "admin-7", "")
	require.NoError(t, err)

	updated, err := b.GetAccount(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("60.00").Equal(updated.Balance))
	assertLedgerMatchesBalance(t, b, account.AccountID)
}

func TestProcessServiceRequest_RejectAndCompleteAreStatusOnly(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "100.00")

	deposit := submitRequest(t, b, model.RequestDeposit, account.AccountID, "50.00")
	rejected, err := b.ProcessServiceRequest(context.Background(), deposit.RequestID, "reject", "admin-1", "no slip")
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, rejected.Status)

	issue := submitRequest(t, b, model.RequestAccountIssue, account.AccountID, "")
	completed, err := b.ProcessServiceRequest(context.Background(), issue.RequestID, "COMPLETE", "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.RequestCompleted, completed.Status)

	other := submitRequest(t, b, model.RequestOther, "", "")
	approved, err := b.ProcessServiceRequest(context.Background(), other.RequestID, "approve", "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, approved.Status)

	updated, err := b.GetAccount(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.00").Equal(updated.Balance))
	entries, err := b.GetLedger(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProcessServiceRequest_AlreadyProcessed(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "")
	request := submitRequest(t, b, model.RequestDeposit, account.AccountID, "25.00")

	first, err := b.ProcessServiceRequest(context.Background(), request.RequestID, "approve", "admin-1", "")
	require.NoError(t, err)

	for _, action := range []string{"approve", "reject", "complete"} {
		_, err = b.ProcessServiceRequest(context.Background(), request.RequestID, action, "admin-2", "")
		assert.True(t, apierror.Is(err, apierror.ErrAlreadyProcessed), action)
	}

	stored, err := b.GetServiceRequest(context.Background(), request.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", stored.ProcessedBy)
	assert.Equal(t, first.ProcessedAt.Unix(), stored.ProcessedAt.Unix())

	updated, err := b.GetAccount(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.00").Equal(updated.Balance))
}

func TestProcessServiceRequest_InvalidInput(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	request := submitRequest(t, b, model.RequestOther, "", "")

	_, err := b.ProcessServiceRequest(context.Background(), request.RequestID, "escalate", "admin-1", "")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidAction))

	_, err = b.ProcessServiceRequest(context.Background(), request.RequestID, "approve", " ", "")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))

	_, err = b.ProcessServiceRequest(context.Background(), "REQ000000", "approve", "admin-1", "")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))

	stored, err := b.GetServiceRequest(context.Background(), request.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, stored.Status)
}

func TestProcessServiceRequest_ConcurrentApprovalsApplyOnce(t *testing.T) {
	b, _, _ := newMemoryBackoffice(t)
	account := fundedAccount(t, b, "")
	request := submitRequest(t, b, model.RequestDeposit, account.AccountID, "80.00")

	const admins = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		already   int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(admin string) {
			defer wg.Done()
			_, err := b.ProcessServiceRequest(context.Background(), request.RequestID, "approve", admin, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apierror.Is(err, apierror.ErrAlreadyProcessed):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(gofakeit.Username())
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, admins-1, already)

	updated, err := b.GetAccount(context.Background(), account.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("80.00").Equal(updated.Balance))
	assertLedgerMatchesBalance(t, b, account.AccountID)
}

func TestProcessServiceRequest_RejectSQL(t *testing.T) {
	b, mock := newSQLBackoffice(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(serviceRequestRowColumns).
			AddRow("REQ123456", "cust-1", "deposit", "BNK1234567890", "50.00", "cash", "pending", nil, created, nil, nil)
	}
	mock.ExpectQuery("SELECT (.+) FROM backoffice.service_requests WHERE request_id = \\$1").
		WithArgs("REQ123456").
		WillReturnRows(row())
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM backoffice.service_requests WHERE request_id = \\$1 FOR UPDATE").
		WithArgs("REQ123456").
		WillReturnRows(row())
	mock.ExpectExec("UPDATE backoffice.service_requests SET status = \\$2, admin_note = \\$3, processed_at = \\$4, processed_by = \\$5 WHERE request_id = \\$1 AND status = 'pending'").
		WithArgs("REQ123456", "rejected", "duplicate", sqlmock.AnyArg(), "admin-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	processed, err := b.ProcessServiceRequest(context.Background(), "REQ123456", "reject", "admin-3", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, processed.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessServiceRequest_LostRaceReportsAlreadyProcessed(t *testing.T) {
	b, ds, tx := newMockedBackoffice(t)
	pending := func() *model.ServiceRequest {
		return &model.ServiceRequest{RequestID: "REQ654321", Type: model.RequestOther, Status: model.RequestPending}
	}

	ds.On("GetServiceRequest", mock.Anything, "REQ654321").Return(pending(), nil)
	ds.On("WithinTx", mock.Anything).Return(tx, nil)
	tx.On("LockServiceRequest", mock.Anything, "REQ654321").Return(pending(), nil)
	tx.On("SaveServiceRequestDecision", mock.Anything, mock.Anything).
		Return(apierror.NewAPIError(apierror.ErrAlreadyProcessed, "Service request REQ654321 is no longer pending", nil))

	_, err := b.ProcessServiceRequest(context.Background(), "REQ654321", "approve", "admin-1", "")
	assert.True(t, apierror.Is(err, apierror.ErrAlreadyProcessed))
	tx.AssertExpectations(t)
}
