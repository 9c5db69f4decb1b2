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
	"github.com/wacul/ptr"

	"github.com/ledgerdesk/backoffice/amortization"
	"github.com/ledgerdesk/backoffice/internal/apierror"
)

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanRejected  LoanStatus = "rejected"
	LoanDisbursed LoanStatus = "disbursed"
	LoanCompleted LoanStatus = "completed"
)

// Defaults applied to loan applications that leave term or rate out.
const DefaultLoanDurationMonths = 12

var DefaultLoanInterestRate = decimal.NewFromInt(10)

// Loan moves pending -> approved|rejected, then approved -> disbursed -> completed.
// ApprovedBy and ApprovedDate are written once, together with the decision.
type Loan struct {
	LoanID         string          `json:"loan_id"`
	BorrowerID     string          `json:"borrower_id"`
	AccountID      string          `json:"account_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	DurationMonths int             `json:"duration_months"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	Status         LoanStatus      `json:"status"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedDate   *time.Time      `json:"approved_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LoanDecision is what DecideLoan hands back to the caller.
type LoanDecision struct {
	Loan            *Loan `json:"loan"`
	ScheduleCreated bool  `json:"schedule_created"`
}

// ApplyDefaults fills in the term of a new application. A zero rate is a valid
// interest-free loan, so the rate default is applied by callers that can tell an
// omitted rate from a zero one.
func (l *Loan) ApplyDefaults() {
	if l.DurationMonths == 0 {
		l.DurationMonths = DefaultLoanDurationMonths
	}
	l.Status = LoanPending
}

// ValidateParameters rejects loans that cannot be amortized.
func (l *Loan) ValidateParameters() error {
	if err := amortization.Validate(l.Amount, l.InterestRate, l.DurationMonths); err != nil {
		return err
	}
	if !l.Amount.Equal(l.Amount.Round(2)) {
		return apierror.NewAPIError(apierror.ErrInvalidLoanParameters, "principal cannot have more than two decimal places", nil)
	}
	if !l.InterestRate.Equal(l.InterestRate.Round(2)) {
		return apierror.NewAPIError(apierror.ErrInvalidLoanParameters, "interest rate cannot have more than two decimal places", nil)
	}
	return nil
}

// Decide applies an approve or reject decision to a pending loan.
func (l *Loan) Decide(action Action, actor string, at time.Time) error {
	if l.Status != LoanPending {
		return alreadyProcessed("loan", l.LoanID, string(l.Status))
	}

	switch action {
	case ActionApprove:
		l.Status = LoanApproved
	case ActionReject:
		l.Status = LoanRejected
	default:
		return invalidAction(action)
	}

	l.ApprovedBy = actor
	l.ApprovedDate = ptr.Time(at)
	return nil
}

// Disburse moves an approved loan to disbursed.
func (l *Loan) Disburse() error {
	if l.Status != LoanApproved {
		return alreadyProcessed("loan", l.LoanID, string(l.Status))
	}
	l.Status = LoanDisbursed
	return nil
}

// Complete moves a disbursed loan to completed.
func (l *Loan) Complete() error {
	if l.Status != LoanDisbursed {
		return alreadyProcessed("loan", l.LoanID, string(l.Status))
	}
	l.Status = LoanCompleted
	return nil
}

func alreadyProcessed(resource, id, status string) error {
	return apierror.NewAPIError(apierror.ErrAlreadyProcessed,
		fmt.Sprintf("%s %s already processed (status %s)", resource, id, status), nil)
}
