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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/backoffice/model"
)

type OpenAccount struct {
	OwnerID     string `json:"owner_id"`
	AccountType string `json:"account_type"`
}

type UpdateAccountStatus struct {
	Status string `json:"status"`
}

type SubmitServiceRequest struct {
	RequesterID string           `json:"requester_id"`
	RequestType string           `json:"request_type"`
	AccountID   string           `json:"account_id"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
}

type ProcessServiceRequest struct {
	Action string `json:"action"`
	Note   string `json:"note"`
}

// ApplyForLoan leaves InterestRate as a pointer so an omitted rate can be told apart
// from an interest-free loan.
type ApplyForLoan struct {
	BorrowerID     string           `json:"borrower_id"`
	AccountID      string           `json:"account_id"`
	Amount         decimal.Decimal  `json:"amount"`
	DurationMonths int              `json:"duration_months"`
	InterestRate   *decimal.Decimal `json:"interest_rate"`
}

type DecideLoan struct {
	Action string `json:"action"`
}

func positiveAmount(value interface{}) error {
	switch amount := value.(type) {
	case decimal.Decimal:
		if !amount.IsPositive() {
			return errors.New("must be greater than zero")
		}
	case *decimal.Decimal:
		if amount != nil && !amount.IsPositive() {
			return errors.New("must be greater than zero")
		}
	}
	return nil
}

const maxNoteLength = 1000

func (a *OpenAccount) ValidateOpenAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.OwnerID, validation.Required),
		validation.Field(&a.AccountType, validation.In(string(model.AccountTypeSavings), string(model.AccountTypeCurrent))),
	)
}

func (s *UpdateAccountStatus) ValidateUpdateAccountStatus() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Status, validation.Required, validation.In(
			string(model.AccountStatusActive), string(model.AccountStatusInactive), string(model.AccountStatusSuspended))),
	)
}

func (r *SubmitServiceRequest) ValidateSubmitServiceRequest() error {
	movesMoney := r.RequestType == string(model.RequestDeposit) || r.RequestType == string(model.RequestWithdrawal)
	return validation.ValidateStruct(r,
		validation.Field(&r.RequesterID, validation.Required),
		validation.Field(&r.RequestType, validation.Required, validation.In(
			string(model.RequestDeposit), string(model.RequestWithdrawal), string(model.RequestAccountIssue),
			string(model.RequestLoanApplication), string(model.RequestOther))),
		validation.Field(&r.AccountID, validation.When(movesMoney, validation.Required.Error("account_id is required for deposits and withdrawals"))),
		validation.Field(&r.Amount, validation.When(movesMoney, validation.NotNil.Error("amount is required for deposits and withdrawals")),
			validation.By(positiveAmount)),
	)
}

// ValidateProcessServiceRequest leaves the action to the processor so an unknown or
// missing action is reported as INVALID_ACTION.
func (p *ProcessServiceRequest) ValidateProcessServiceRequest() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Note, validation.Length(0, maxNoteLength)),
	)
}

func (l *ApplyForLoan) ValidateApplyForLoan() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.BorrowerID, validation.Required),
		validation.Field(&l.Amount, validation.By(positiveAmount)),
		validation.Field(&l.DurationMonths, validation.Min(0)),
	)
}

func (a *OpenAccount) ToAccountType() model.AccountType {
	return model.AccountType(a.AccountType)
}

func (r *SubmitServiceRequest) ToServiceRequest() model.ServiceRequest {
	return model.ServiceRequest{
		RequesterID: r.RequesterID,
		Type:        model.RequestType(r.RequestType),
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Description: r.Description,
	}
}

func (l *ApplyForLoan) ToLoan() model.Loan {
	rate := model.DefaultLoanInterestRate
	if l.InterestRate != nil {
		rate = *l.InterestRate
	}
	return model.Loan{
		BorrowerID:     l.BorrowerID,
		AccountID:      l.AccountID,
		Amount:         l.Amount,
		DurationMonths: l.DurationMonths,
		InterestRate:   rate,
	}
}
