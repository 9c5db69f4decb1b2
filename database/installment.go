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
	"strings"
	"time"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

// InsertInstallments writes a whole schedule with a single statement.
func (t *sqlTx) InsertInstallments(ctx context.Context, installments []model.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	const columns = 8
	placeholders := make([]string, 0, len(installments))
	args := make([]interface{}, 0, len(installments)*columns)
	for i, in := range installments {
		base := i * columns
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, in.LoanID, in.EMINumber, in.DueDate, in.Amount, in.Principal, in.Interest,
			string(in.Status), in.Penalty)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO backoffice.installments (loan_id, emi_number, due_date, amount, principal, interest, status, penalty)
		VALUES `+strings.Join(placeholders, ", "), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, "Installment schedule already exists for this loan", err)
		}
		return apierror.Storage("Failed to create installment schedule", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.Storage("Failed to get rows affected", err)
	}
	if rowsAffected != int64(len(installments)) {
		return apierror.Storage("Installment schedule was only partially written",
			fmt.Errorf("expected %d rows, wrote %d", len(installments), rowsAffected))
	}
	return nil
}

func (d Datasource) GetInstallments(ctx context.Context, loanID string) ([]model.Installment, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, loan_id, emi_number, due_date, amount, principal, interest, status, paid_date, penalty
		FROM backoffice.installments
		WHERE loan_id = $1
		ORDER BY emi_number
	`, loanID)
	if err != nil {
		return nil, apierror.Storage("Failed to retrieve installments", err)
	}
	defer rows.Close()

	installments := []model.Installment{}
	for rows.Next() {
		var in model.Installment
		var paidDate sql.NullTime
		err = rows.Scan(&in.ID, &in.LoanID, &in.EMINumber, &in.DueDate, &in.Amount, &in.Principal,
			&in.Interest, &in.Status, &paidDate, &in.Penalty)
		if err != nil {
			return nil, apierror.Storage("Failed to scan installment", err)
		}
		if paidDate.Valid {
			in.PaidDate = &paidDate.Time
		}
		installments = append(installments, in)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.Storage("Error occurred while iterating over installments", err)
	}
	return installments, nil
}

// MarkOverdueInstallments flips pending installments due before asOf to overdue and
// returns the distinct loans touched.
func (d Datasource) MarkOverdueInstallments(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		UPDATE backoffice.installments
		SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1
		RETURNING loan_id
	`, asOf)
	if err != nil {
		return nil, apierror.Storage("Failed to mark overdue installments", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	loanIDs := []string{}
	for rows.Next() {
		var loanID string
		if err := rows.Scan(&loanID); err != nil {
			return nil, apierror.Storage("Failed to scan overdue installment", err)
		}
		if _, ok := seen[loanID]; ok {
			continue
		}
		seen[loanID] = struct{}{}
		loanIDs = append(loanIDs, loanID)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.Storage("Error occurred while marking overdue installments", err)
	}
	return loanIDs, nil
}
