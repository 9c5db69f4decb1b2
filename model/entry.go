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

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryDeposit          EntryKind = "deposit"
	EntryWithdrawal       EntryKind = "withdrawal"
	EntryTransfer         EntryKind = "transfer"
	EntryLoanDisbursement EntryKind = "loan_disbursement"
)

func (k EntryKind) Valid() bool {
	switch k {
	case EntryDeposit, EntryWithdrawal, EntryTransfer, EntryLoanDisbursement:
		return true
	}
	return false
}

// IsDebit reports whether the kind takes money out of the account. Transfers are
// recorded on the sending side only.
func (k EntryKind) IsDebit() bool {
	return k == EntryWithdrawal || k == EntryTransfer
}

// LedgerEntry is append-only. Amount is always positive, the kind gives the direction.
type LedgerEntry struct {
	ID           int64           `json:"-"`
	EntryID      string          `json:"entry_id"`
	AccountID    string          `json:"account_id"`
	Kind         EntryKind       `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reference    string          `json:"reference,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Signed returns the amount with the direction applied.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Kind.IsDebit() {
		return e.Amount.Neg()
	}
	return e.Amount
}

// SumEntries folds entries into the balance they imply.
func SumEntries(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Signed())
	}
	return total
}
