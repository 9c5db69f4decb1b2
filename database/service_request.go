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

const serviceRequestColumns = `request_id, requester_id, request_type, account_id, amount, description, status,
	admin_note, created_at, processed_at, processed_by`

func scanServiceRequest(row rowScanner) (*model.ServiceRequest, error) {
	request := &model.ServiceRequest{}
	var accountID, adminNote, processedBy sql.NullString
	var amount decimal.NullDecimal
	var processedAt sql.NullTime

	err := row.Scan(&request.RequestID, &request.RequesterID, &request.Type, &accountID, &amount,
		&request.Description, &request.Status, &adminNote, &request.CreatedAt, &processedAt, &processedBy)
	if err != nil {
		return nil, err
	}

	request.AccountID = accountID.String
	request.AdminNote = adminNote.String
	request.ProcessedBy = processedBy.String
	if amount.Valid {
		request.Amount = &amount.Decimal
	}
	if processedAt.Valid {
		request.ProcessedAt = &processedAt.Time
	}
	return request, nil
}

func nullAmount(amount *decimal.Decimal) decimal.NullDecimal {
	if amount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *amount, Valid: true}
}

// CreateServiceRequest stores a new pending request under a generated REQ number.
func (d Datasource) CreateServiceRequest(ctx context.Context, request model.ServiceRequest) (model.ServiceRequest, error) {
	request.Status = model.RequestPending
	request.CreatedAt = time.Now().UTC()
	request.ProcessedAt = nil
	request.ProcessedBy = ""

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		request.RequestID = model.GenerateNumberWithPrefix(model.RequestIDPrefix, model.RequestIDDigits)

		_, err := d.Conn.ExecContext(ctx, `
			INSERT INTO backoffice.service_requests (request_id, requester_id, request_type, account_id, amount, description, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, request.RequestID, request.RequesterID, string(request.Type), nullString(request.AccountID),
			nullAmount(request.Amount), request.Description, string(request.Status), request.CreatedAt)
		if err == nil {
			return request, nil
		}
		if !isUniqueViolation(err) {
			return model.ServiceRequest{}, apierror.Storage("Failed to create service request", err)
		}
		logrus.Warnf("request id %s already taken, retrying (attempt %d)", request.RequestID, attempt)
	}

	return model.ServiceRequest{}, apierror.NewAPIError(apierror.ErrConflict, "Could not allocate a unique request ID", nil)
}

func (d Datasource) GetServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+serviceRequestColumns+`
		FROM backoffice.service_requests
		WHERE request_id = $1
	`, id)

	request, err := scanServiceRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Service request with ID '%s' not found", id), err)
		}
		return nil, apierror.Storage("Failed to retrieve service request", err)
	}
	return request, nil
}

func (t *sqlTx) LockServiceRequest(ctx context.Context, id string) (*model.ServiceRequest, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+serviceRequestColumns+`
		FROM backoffice.service_requests
		WHERE request_id = $1
		FOR UPDATE
	`, id)

	request, err := scanServiceRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Service request with ID '%s' not found", id), err)
		}
		return nil, apierror.Storage("Failed to lock service request", err)
	}
	return request, nil
}

// SaveServiceRequestDecision only matches a row still in pending, so a second writer
// that slipped past the row lock sees zero rows and gets ALREADY_PROCESSED.
func (t *sqlTx) SaveServiceRequestDecision(ctx context.Context, request *model.ServiceRequest) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE backoffice.service_requests
		SET status = $2, admin_note = $3, processed_at = $4, processed_by = $5
		WHERE request_id = $1 AND status = 'pending'
	`, request.RequestID, string(request.Status), nullString(request.AdminNote), request.ProcessedAt, request.ProcessedBy)
	if err != nil {
		return apierror.Storage("Failed to save service request decision", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.Storage("Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrAlreadyProcessed,
			fmt.Sprintf("Service request %s is no longer pending", request.RequestID), nil)
	}
	return nil
}
