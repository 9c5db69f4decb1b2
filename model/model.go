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
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/backoffice/internal/apierror"
)

// Identifier prefixes and the number of random digits that follow them.
const (
	AccountNumberPrefix = "BNK"
	AccountNumberDigits = 10
	LoanIDPrefix        = "LOAN"
	LoanIDDigits        = 6
	RequestIDPrefix     = "REQ"
	RequestIDDigits     = 6
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// GenerateNumberWithPrefix returns prefix followed by exactly digits random decimal
// digits, the first of which is never zero. Uniqueness is enforced by the store, which
// regenerates on collision.
func GenerateNumberWithPrefix(prefix string, digits int) string {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is gone
		panic(err)
	}
	return prefix + n.Add(n, low).String()
}

// ValidateAmount checks that a monetary amount is positive and carries no more than
// two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "amount must be greater than zero", nil)
	}
	if !amount.Equal(amount.Round(2)) {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "amount cannot have more than two decimal places", nil)
	}
	return nil
}
