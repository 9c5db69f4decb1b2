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

package database

import (
	"context"
	"time"

	"github.com/ledgerdesk/backoffice/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	account        // Interface for account-related operations
	ledgerEntry    // Interface for ledger entry reads
	serviceRequest // Interface for service request operations
	loan           // Interface for loan operations
	installment    // Interface for installment operations

	// WithinTx runs fn inside one database transaction. Everything fn does through the
	// Tx commits together when fn returns nil and is rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error) // Creates a new account with a generated number
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)           // Retrieves an account by ID
	UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error
}

type ledgerEntry interface {
	GetEntriesByAccount(ctx context.Context, accountID string) ([]model.LedgerEntry, error) // Entries ordered by creation
}

type serviceRequest interface {
	CreateServiceRequest(ctx context.Context, request model.ServiceRequest) (model.ServiceRequest, error)
	GetServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error)
}

type loan interface {
	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	GetLoan(ctx context.Context, id string) (*model.Loan, error)
}

type installment interface {
	GetInstallments(ctx context.Context, loanID string) ([]model.Installment, error) // Schedule ordered by emi_number
	MarkOverdueInstallments(ctx context.Context, asOf time.Time) ([]string, error)   // Returns the loans that had rows flipped
}

// Tx is the set of row level operations available inside WithinTx. Lock* methods take a
// row lock held until the transaction ends.
type Tx interface {
	LockAccount(ctx context.Context, id string) (*model.Account, error)
	// SaveAccountBalance writes the balance if the stored version still matches, then bumps it.
	SaveAccountBalance(ctx context.Context, account *model.Account) error
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error

	LockServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error)
	// SaveServiceRequestDecision persists a terminal status. It only matches pending rows.
	SaveServiceRequestDecision(ctx context.Context, request *model.ServiceRequest) error

	LockLoan(ctx context.Context, id string) (*model.Loan, error)
	// SaveLoanStatus persists the loan's status and decision fields if it is still in from.
	SaveLoanStatus(ctx context.Context, loan *model.Loan, from model.LoanStatus) error
	InsertInstallments(ctx context.Context, installments []model.Installment) error
}
