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
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

const accountColumns = `account_id, owner_id, account_type, balance, status, version, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(&account.AccountID, &account.OwnerID, &account.Type, &account.Balance,
		&account.Status, &account.Version, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreateAccount inserts a new account with a zero balance and a freshly generated
// account number. A number collision is retried with a new number.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	account.Balance = decimal.Zero
	account.Version = 0
	if account.Status == "" {
		account.Status = model.AccountStatusActive
	}
	account.CreatedAt = time.Now().UTC()

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		account.AccountID = model.GenerateNumberWithPrefix(model.AccountNumberPrefix, model.AccountNumberDigits)

		_, err := d.Conn.ExecContext(ctx, `
			INSERT INTO backoffice.accounts (account_id, owner_id, account_type, balance, status, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, account.AccountID, account.OwnerID, string(account.Type), account.Balance, string(account.Status),
			account.Version, account.CreatedAt)
		if err == nil {
			return account, nil
		}
		if !isUniqueViolation(err) {
			return model.Account{}, apierror.Storage("Failed to create account", err)
		}
		logrus.Warnf("account number %s already taken, retrying (attempt %d)", account.AccountID, attempt)
	}

	return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, "Could not allocate a unique account number", nil)
}

func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM backoffice.accounts
		WHERE account_id = $1
	`, id)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), err)
		}
		return nil, apierror.Storage("Failed to retrieve account", err)
	}
	return account, nil
}

// UpdateAccountStatus moves an account between active, inactive and suspended. The
// balance and version are left alone.
func (d Datasource) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE backoffice.accounts
		SET status = $2
		WHERE account_id = $1
	`, id, string(status))
	if err != nil {
		return apierror.Storage("Failed to update account status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.Storage("Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), nil)
	}
	return nil
}

// LockAccount reads the account and holds its row lock until the transaction ends.
func (t *sqlTx) LockAccount(ctx context.Context, id string) (*model.Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM backoffice.accounts
		WHERE account_id = $1
		FOR UPDATE
	`, id)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), err)
		}
		return nil, apierror.Storage("Failed to lock account", err)
	}
	return account, nil
}

// SaveAccountBalance writes the new balance using optimistic locking on version. A
// version mismatch means another writer got in first and the unit must be abandoned.
func (t *sqlTx) SaveAccountBalance(ctx context.Context, account *model.Account) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE backoffice.accounts
		SET balance = $2, version = version + 1
		WHERE account_id = $1 AND version = $3
	`, account.AccountID, account.Balance, account.Version)
	if err != nil {
		return apierror.Storage("Failed to update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.Storage("Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Account %s was modified by another operation", account.AccountID), nil)
	}

	account.Version++
	return nil
}
