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

package backoffice

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerdesk/backoffice/internal/apierror"
	"github.com/ledgerdesk/backoffice/model"
)

// OpenAccount creates an active, empty account. An empty type opens a savings account.
func (b *Backoffice) OpenAccount(ctx context.Context, ownerID string, accountType model.AccountType) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "OpenAccount")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "owner_id is required", nil)
	}
	if accountType == "" {
		accountType = model.AccountTypeSavings
	}
	if !accountType.Valid() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown account type %q", accountType), nil)
	}

	account, err := b.datasource.CreateAccount(ctx, model.Account{
		OwnerID: ownerID,
		Type:    accountType,
		Status:  model.AccountStatusActive,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &account, nil
}

func (b *Backoffice) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return b.datasource.GetAccountByID(ctx, id)
}

// UpdateAccountStatus moves an account between active, inactive and suspended.
// Accounts are never deleted.
func (b *Backoffice) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) (*model.Account, error) {
	if !status.Valid() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown account status %q", status), nil)
	}
	if err := b.datasource.UpdateAccountStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return b.datasource.GetAccountByID(ctx, id)
}
