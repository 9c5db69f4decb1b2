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

// Package memory is an in-process implementation of database.IDataSource. It keeps the
// same unit-of-work guarantees as the Postgres datasource: WithinTx runs one unit at a
// time and staged writes become visible only when fn returns nil.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

var _ database.IDataSource = (*Store)(nil)

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	accounts     map[string]*model.Account
	entries      map[string][]model.LedgerEntry
	requests     map[string]*model.ServiceRequest
	loans        map[string]*model.Loan
	installments map[string][]model.Installment
	nextRowID    int64
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*model.Account),
		entries:      make(map[string][]model.LedgerEntry),
		requests:     make(map[string]*model.ServiceRequest),
		loans:        make(map[string]*model.Loan),
		installments: make(map[string][]model.Installment),
	}
}

func notFound(kind, id string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("%s with ID '%s' not found", kind, id), nil)
}

// uniqueID draws identifiers until one is free in taken. Callers hold s.mu.
func uniqueID(prefix string, digits int, taken func(string) bool) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := model.GenerateNumberWithPrefix(prefix, digits)
		if !taken(id) {
			return id, nil
		}
	}
	return "", apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Could not allocate a unique %s identifier", prefix), nil)
}

func (s *Store) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uniqueID(model.AccountNumberPrefix, model.AccountNumberDigits, func(id string) bool {
		_, ok := s.accounts[id]
		return ok
	})
	if err != nil {
		return model.Account{}, err
	}

	account.AccountID = id
	account.Balance = decimal.Zero
	account.Version = 0
	if account.Status == "" {
		account.Status = model.AccountStatusActive
	}
	account.CreatedAt = time.Now().UTC()

	stored := account
	s.accounts[id] = &stored
	return account, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, notFound("Account", id)
	}
	copied := *account
	return &copied, nil
}

func (s *Store) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return notFound("Account", id)
	}
	account.Status = status
	return nil
}

func (s *Store) GetEntriesByAccount(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.LedgerEntry, len(s.entries[accountID]))
	copy(entries, s.entries[accountID])
	return entries, nil
}

func (s *Store) CreateServiceRequest(ctx context.Context, request model.ServiceRequest) (model.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uniqueID(model.RequestIDPrefix, model.RequestIDDigits, func(id string) bool {
		_, ok := s.requests[id]
		return ok
	})
	if err != nil {
		return model.ServiceRequest{}, err
	}

	request.RequestID = id
	request.Status = model.RequestPending
	request.CreatedAt = time.Now().UTC()
	request.ProcessedAt = nil
	request.ProcessedBy = ""

	stored := request
	s.requests[id] = &stored
	return request, nil
}

func (s *Store) GetServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, notFound("Service request", id)
	}
	copied := *request
	return &copied, nil
}

func (s *Store) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uniqueID(model.LoanIDPrefix, model.LoanIDDigits, func(id string) bool {
		_, ok := s.loans[id]
		return ok
	})
	if err != nil {
		return model.Loan{}, err
	}

	loan.LoanID = id
	loan.Status = model.LoanPending
	loan.ApprovedBy = ""
	loan.ApprovedDate = nil
	loan.CreatedAt = time.Now().UTC()

	stored := loan
	s.loans[id] = &stored
	return loan, nil
}

func (s *Store) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, notFound("Loan", id)
	}
	copied := *loan
	return &copied, nil
}

func (s *Store) GetInstallments(ctx context.Context, loanID string) ([]model.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	installments := make([]model.Installment, len(s.installments[loanID]))
	copy(installments, s.installments[loanID])
	sort.Slice(installments, func(i, j int) bool {
		return installments[i].EMINumber < installments[j].EMINumber
	})
	return installments, nil
}

func (s *Store) MarkOverdueInstallments(ctx context.Context, asOf time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loanIDs := []string{}
	for loanID, installments := range s.installments {
		touched := false
		for i := range installments {
			if installments[i].Status == model.InstallmentPending && installments[i].DueDate.Before(asOf) {
				installments[i].Status = model.InstallmentOverdue
				touched = true
			}
		}
		if touched {
			loanIDs = append(loanIDs, loanID)
		}
	}
	sort.Strings(loanIDs)
	return loanIDs, nil
}

// WithinTx serializes units of work across the whole store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apierror.Storage("Failed to begin transaction", errors.Wrap(err, "memory store"))
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apierror.Storage("Failed to commit transaction", errors.Wrap(err, "memory store"))
	}

	tx.commit()
	return nil
}
