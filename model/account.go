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
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/backoffice/internal/apierror"
)

type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeCurrent
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended:
		return true
	}
	return false
}

// Account holds a cached balance that must always equal the signed sum of its ledger
// entries. Version is bumped on every balance write.
type Account struct {
	AccountID string          `json:"account_id"`
	OwnerID   string          `json:"owner_id"`
	Type      AccountType     `json:"account_type"`
	Balance   decimal.Decimal `json:"balance"`
	Status    AccountStatus   `json:"status"`
	Version   int64           `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// Apply moves the balance by one entry of the given kind. It fails without touching the
// account when the amount is invalid or a debit would take the balance below zero.
func (a *Account) Apply(kind EntryKind, amount decimal.Decimal) error {
	if !kind.Valid() {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown entry kind %q", kind), nil)
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	if kind.IsDebit() {
		if a.Balance.LessThan(amount) {
			return apierror.NewAPIError(apierror.ErrInsufficientFunds,
				fmt.Sprintf("insufficient funds in account %s", a.AccountID), nil)
		}
		a.Balance = a.Balance.Sub(amount)
		return nil
	}

	a.Balance = a.Balance.Add(amount)
	return nil
}
