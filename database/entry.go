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
	"time"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

// InsertLedgerEntry appends an entry. Entries are never updated or deleted.
func (t *sqlTx) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = model.GenerateUUIDWithSuffix("ent")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO backoffice.ledger_entries (entry_id, account_id, kind, amount, balance_after, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, entry.EntryID, entry.AccountID, string(entry.Kind), entry.Amount, entry.BalanceAfter,
		nullString(entry.Reference), nullString(entry.Description), entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return apierror.Storage("Failed to record ledger entry", err)
	}
	return nil
}

func (d Datasource) GetEntriesByAccount(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, entry_id, account_id, kind, amount, balance_after, reference, description, created_at
		FROM backoffice.ledger_entries
		WHERE account_id = $1
		ORDER BY created_at, id
	`, accountID)
	if err != nil {
		return nil, apierror.Storage("Failed to retrieve ledger entries", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var entry model.LedgerEntry
		var reference, description sql.NullString
		err = rows.Scan(&entry.ID, &entry.EntryID, &entry.AccountID, &entry.Kind, &entry.Amount,
			&entry.BalanceAfter, &reference, &description, &entry.CreatedAt)
		if err != nil {
			return nil, apierror.Storage("Failed to scan ledger entry", err)
		}
		entry.Reference = reference.String
		entry.Description = description.String
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.Storage("Error occurred while iterating over ledger entries", err)
	}
	return entries, nil
}
