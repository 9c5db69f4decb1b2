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

	"github.com/ledgerdesk/backoffice/amortization"
)

type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentDefaulted InstallmentStatus = "defaulted"
)

// Installment is one EMI row. Principal+Interest always equals Amount.
type Installment struct {
	ID        int64             `json:"-"`
	LoanID    string            `json:"loan_id"`
	EMINumber int               `json:"emi_number"`
	DueDate   time.Time         `json:"due_date"`
	Amount    decimal.Decimal   `json:"amount"`
	Principal decimal.Decimal   `json:"principal"`
	Interest  decimal.Decimal   `json:"interest"`
	Status    InstallmentStatus `json:"status"`
	PaidDate  *time.Time        `json:"paid_date,omitempty"`
	Penalty   decimal.Decimal   `json:"penalty"`
}

// BuildSchedule materializes the installment rows for an approved loan. The first
// installment is due one period after the approval date.
func BuildSchedule(loan *Loan) ([]Installment, error) {
	if loan.ApprovedDate == nil {
		return nil, alreadyProcessed("loan", loan.LoanID, string(loan.Status))
	}

	schedule, err := amortization.Compute(loan.Amount, loan.InterestRate, loan.DurationMonths)
	if err != nil {
		return nil, err
	}
	dueDates := amortization.DueDates(*loan.ApprovedDate, len(schedule.Splits))

	installments := make([]Installment, 0, len(schedule.Splits))
	for i, split := range schedule.Splits {
		installments = append(installments, Installment{
			LoanID:    loan.LoanID,
			EMINumber: split.Number,
			DueDate:   dueDates[i],
			Amount:    schedule.Installment,
			Principal: split.Principal,
			Interest:  split.Interest,
			Status:    InstallmentPending,
			Penalty:   decimal.Zero,
		})
	}
	return installments, nil
}
