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

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// Ledger entry methods

func (m *MockDataSource) GetEntriesByAccount(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

// Service request methods

func (m *MockDataSource) CreateServiceRequest(ctx context.Context, request model.ServiceRequest) (model.ServiceRequest, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(model.ServiceRequest), args.Error(1)
}

func (m *MockDataSource) GetServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceRequest), args.Error(1)
}

// Loan methods

func (m *MockDataSource) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	args := m.Called(ctx, loan)
	return args.Get(0).(model.Loan), args.Error(1)
}

func (m *MockDataSource) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

// Installment methods

func (m *MockDataSource) GetInstallments(ctx context.Context, loanID string) ([]model.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Installment), args.Error(1)
}

func (m *MockDataSource) MarkOverdueInstallments(ctx context.Context, asOf time.Time) ([]string, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// WithinTx hands Tx to fn when one is configured, otherwise returns the configured error.
func (m *MockDataSource) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(database.Tx); ok {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// MockTx is a mock implementation of the database.Tx interface
type MockTx struct {
	mock.Mock
}

func (m *MockTx) LockAccount(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockTx) SaveAccountBalance(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockTx) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTx) LockServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceRequest), args.Error(1)
}

func (m *MockTx) SaveServiceRequestDecision(ctx context.Context, request *model.ServiceRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockTx) LockLoan(ctx context.Context, id string) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockTx) SaveLoanStatus(ctx context.Context, loan *model.Loan, from model.LoanStatus) error {
	args := m.Called(ctx, loan, from)
	return args.Error(0)
}

func (m *MockTx) InsertInstallments(ctx context.Context, installments []model.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

var (
	_ database.IDataSource = (*MockDataSource)(nil)
	_ database.Tx          = (*MockTx)(nil)
)
