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

// Package amortization computes fixed-installment repayment schedules.
//
// Every amount is a 2 decimal place fixed-point value. Each period's interest is rounded
// on its own and the principal part is whatever is left of the installment, so the
// principal parts of a schedule can drift a few cents from the loan principal over long
// terms. The drift is not corrected on the final period.
package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/backoffice/internal/apierror"
)

// DuePeriod is the fixed spacing between installments. It is not calendar-month aware.
const DuePeriod = 30 * 24 * time.Hour

// MaxTermMonths caps a schedule at 50 years.
const MaxTermMonths = 600

// compoundingPlaces bounds the precision of (1+r)^n while it is being built.
const compoundingPlaces = 20

var monthlyRateDivisor = decimal.NewFromInt(1200)

// Split is one period of a schedule.
type Split struct {
	Number    int             `json:"number"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
}

// Schedule is the result of Compute. Installment is constant across all splits and
// Principal+Interest equals it for every split.
type Schedule struct {
	Installment decimal.Decimal `json:"installment"`
	Splits      []Split         `json:"splits"`
}

// MonthlyRate converts an annual percentage into the per-period rate.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(monthlyRateDivisor)
}

// Installment returns the fixed periodic payment for the loan, rounded to 2 places.
func Installment(principal, annualRatePercent decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := Validate(principal, annualRatePercent, termMonths); err != nil {
		return decimal.Zero, err
	}
	return installment(principal, MonthlyRate(annualRatePercent), termMonths), nil
}

func installment(principal, rate decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	if rate.IsZero() {
		return principal.Div(n).Round(2)
	}

	growth := decimal.NewFromInt(1).Add(rate)
	factor := decimal.NewFromInt(1)
	for i := 0; i < termMonths; i++ {
		factor = factor.Mul(growth).Round(compoundingPlaces)
	}

	numerator := principal.Mul(rate).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	return numerator.Div(denominator).Round(2)
}

// Compute builds the full schedule for a loan.
func Compute(principal, annualRatePercent decimal.Decimal, termMonths int) (Schedule, error) {
	if err := Validate(principal, annualRatePercent, termMonths); err != nil {
		return Schedule{}, err
	}

	rate := MonthlyRate(annualRatePercent)
	amount := installment(principal, rate, termMonths)

	splits := make([]Split, 0, termMonths)
	remaining := principal
	for i := 1; i <= termMonths; i++ {
		interest := remaining.Mul(rate).Round(2)
		principalPart := amount.Sub(interest)
		remaining = remaining.Sub(principalPart)

		splits = append(splits, Split{
			Number:    i,
			Principal: principalPart,
			Interest:  interest,
		})
	}

	return Schedule{Installment: amount, Splits: splits}, nil
}

// DueDates returns n due dates, the first one DuePeriod after start and each following
// one DuePeriod after the previous.
func DueDates(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	due := start
	for i := 0; i < n; i++ {
		due = due.Add(DuePeriod)
		dates = append(dates, due)
	}
	return dates
}

// Validate rejects schedules that cannot be computed. A zero rate is valid and produces
// an interest-free schedule.
func Validate(principal, annualRatePercent decimal.Decimal, termMonths int) error {
	if !principal.IsPositive() {
		return apierror.NewAPIError(apierror.ErrInvalidLoanParameters, "principal must be greater than zero", nil)
	}
	if annualRatePercent.IsNegative() {
		return apierror.NewAPIError(apierror.ErrInvalidLoanParameters, "interest rate cannot be negative", nil)
	}
	if termMonths <= 0 {
		return apierror.NewAPIError(apierror.ErrInvalidLoanParameters, "term must be at least one month", nil)
	}
	if termMonths > MaxTermMonths {
		return apierror.NewAPIError(apierror.ErrInvalidLoanParameters,
			fmt.Sprintf("term cannot be longer than %d months", MaxTermMonths), nil)
	}
	return nil
}
