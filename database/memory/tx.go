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
	"fmt"
	"time"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

// tx stages every write and applies them in commit. Reads inside the unit see the
// staged values first.
type tx struct {
	store *Store

	accounts     map[string]*model.Account
	entries      []model.LedgerEntry
	requests     map[string]*model.ServiceRequest
	loans        map[string]*model.Loan
	installments map[string][]model.Installment
}

func newTx(s *Store) *tx {
	return &tx{
		store:        s,
		accounts:     make(map[string]*model.Account),
		requests:     make(map[string]*model.ServiceRequest),
		loans:        make(map[string]*model.Loan),
		installments: make(map[string][]model.Installment),
	}
}

func (t *tx) LockAccount(ctx context.Context, id string) (*model.Account, error) {
	if staged, ok := t.accounts[id]; ok {
		copied := *staged
		return &copied, nil
	}
	return t.store.GetAccountByID(ctx, id)
}

func (t *tx) SaveAccountBalance(ctx context.Context, account *model.Account) error {
	current, err := t.LockAccount(ctx, account.AccountID)
	if err != nil {
		return err
	}
	if current.Version != account.Version {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Account %s was modified by another operation", account.AccountID), nil)
	}

	account.Version++
	current.Balance = account.Balance
	current.Version = account.Version
	t.accounts[account.AccountID] = current
	return nil
}

func (t *tx) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = model.GenerateUUIDWithSuffix("ent")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.entries = append(t.entries, *entry)
	return nil
}

func (t *tx) LockServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	if staged, ok := t.requests[id]; ok {
		copied := *staged
		return &copied, nil
	}
	return t.store.GetServiceRequest(ctx, id)
}

func (t *tx) SaveServiceRequestDecision(ctx context.Context, request *model.ServiceRequest) error {
	current, err := t.LockServiceRequest(ctx, request.RequestID)
	if err != nil {
		return err
	}
	if current.Status != model.RequestPending {
		return apierror.NewAPIError(apierror.ErrAlreadyProcessed,
			fmt.Sprintf("Service request %s is no longer pending", request.RequestID), nil)
	}

	saved := *request
	t.requests[request.RequestID] = &saved
	return nil
}

func (t *tx) LockLoan(ctx context.Context, id string) (*model.Loan, error) {
	if staged, ok := t.loans[id]; ok {
		copied := *staged
		return &copied, nil
	}
	return t.store.GetLoan(ctx, id)
}

func (t *tx) SaveLoanStatus(ctx context.Context, loan *model.Loan, from model.LoanStatus) error {
	current, err := t.LockLoan(ctx, loan.LoanID)
	if err != nil {
		return err
	}
	if current.Status != from {
		return apierror.NewAPIError(apierror.ErrAlreadyProcessed,
			fmt.Sprintf("Loan %s is no longer %s", loan.LoanID, from), nil)
	}

	saved := *loan
	t.loans[loan.LoanID] = &saved
	return nil
}

func (t *tx) InsertInstallments(ctx context.Context, installments []model.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	loanID := installments[0].LoanID

	t.store.mu.RLock()
	existing := len(t.store.installments[loanID])
	t.store.mu.RUnlock()
	if existing > 0 || len(t.installments[loanID]) > 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Installment schedule already exists for this loan", nil)
	}

	staged := make([]model.Installment, len(installments))
	copy(staged, installments)
	t.installments[loanID] = staged
	return nil
}

func (t *tx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, account := range t.accounts {
		stored := s.accounts[id]
		stored.Balance = account.Balance
		stored.Version = account.Version
	}
	for _, entry := range t.entries {
		s.nextRowID++
		entry.ID = s.nextRowID
		s.entries[entry.AccountID] = append(s.entries[entry.AccountID], entry)
	}
	for id, request := range t.requests {
		s.requests[id] = request
	}
	for id, loan := range t.loans {
		s.loans[id] = loan
	}
	for loanID, installments := range t.installments {
		for i := range installments {
			s.nextRowID++
			installments[i].ID = s.nextRowID
		}
		s.installments[loanID] = installments
	}
}
