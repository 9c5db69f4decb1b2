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

	"github.com/sirupsen/logrus"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

const loanColumns = `loan_id, borrower_id, account_id, amount, duration_months, interest_rate, status,
	approved_by, approved_date, created_at`

func scanLoan(row rowScanner) (*model.Loan, error) {
	loan := &model.Loan{}
	var accountID, approvedBy sql.NullString
	var approvedDate sql.NullTime

	err := row.Scan(&loan.LoanID, &loan.BorrowerID, &accountID, &loan.Amount, &loan.DurationMonths,
		&loan.InterestRate, &loan.Status, &approvedBy, &approvedDate, &loan.CreatedAt)
	if err != nil {
		return nil, err
	}

	loan.AccountID = accountID.String
	loan.ApprovedBy = approvedBy.String
	if approvedDate.Valid {
		loan.ApprovedDate = &approvedDate.Time
	}
	return loan, nil
}

// CreateLoan stores a pending loan application under a generated LOAN number.
func (d Datasource) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	loan.Status = model.LoanPending
	loan.ApprovedBy = ""
	loan.ApprovedDate = nil
	loan.CreatedAt = time.Now().UTC()

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		loan.LoanID = model.GenerateNumberWithPrefix(model.LoanIDPrefix, model.LoanIDDigits)

		_, err := d.Conn.ExecContext(ctx, `
			INSERT INTO backoffice.loans (loan_id, borrower_id, account_id, amount, duration_months, interest_rate, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, loan.LoanID, loan.BorrowerID, nullString(loan.AccountID), loan.Amount, loan.DurationMonths,
			loan.InterestRate, string(loan.Status), loan.CreatedAt)
		if err == nil {
			return loan, nil
		}
		if !isUniqueViolation(err) {
			return model.Loan{}, apierror.Storage("Failed to create loan", err)
		}
		logrus.Warnf("loan id %s already taken, retrying (attempt %d)", loan.LoanID, attempt)
	}

	return model.Loan{}, apierror.NewAPIError(apierror.ErrConflict, "Could not allocate a unique loan ID", nil)
}

func (d Datasource) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+loanColumns+`
		FROM backoffice.loans
		WHERE loan_id = $1
	`, id)

	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Loan with ID '%s' not found", id), err)
		}
		return nil, apierror.Storage("Failed to retrieve loan", err)
	}
	return loan, nil
}

func (t *sqlTx) LockLoan(ctx context.Context, id string) (*model.Loan, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+loanColumns+`
		FROM backoffice.loans
		WHERE loan_id = $1
		FOR UPDATE
	`, id)

	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Loan with ID '%s' not found", id), err)
		}
		return nil, apierror.Storage("Failed to lock loan", err)
	}
	return loan, nil
}

// SaveLoanStatus writes the loan's status and decision fields, guarded on the status
// the caller read. Zero matched rows means another writer moved the loan first.
func (t *sqlTx) SaveLoanStatus(ctx context.Context, loan *model.Loan, from model.LoanStatus) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE backoffice.loans
		SET status = $2, approved_by = $3, approved_date = $4
		WHERE loan_id = $1 AND status = $5
	`, loan.LoanID, string(loan.Status), nullString(loan.ApprovedBy), loan.ApprovedDate, string(from))
	if err != nil {
		return apierror.Storage("Failed to update loan status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.Storage("Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrAlreadyProcessed,
			fmt.Sprintf("Loan %s is no longer %s", loan.LoanID, from), nil)
	}
	return nil
}
