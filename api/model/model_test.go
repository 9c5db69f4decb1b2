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
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ledgerdesk/backoffice/model"
)

func decimalPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func TestValidateOpenAccount(t *testing.T) {
	tests := []struct {
		name    string
		account OpenAccount
		wantErr bool
	}{
		{"valid savings", OpenAccount{OwnerID: "cust-1", AccountType: "savings"}, false},
		{"type defaults later", OpenAccount{OwnerID: "cust-1"}, false},
		{"missing owner", OpenAccount{AccountType: "current"}, true},
		{"unknown type", OpenAccount{OwnerID: "cust-1", AccountType: "checking"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.ValidateOpenAccount()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUpdateAccountStatus(t *testing.T) {
	assert.NoError(t, (&UpdateAccountStatus{Status: "suspended"}).ValidateUpdateAccountStatus())
	assert.Error(t, (&UpdateAccountStatus{Status: "closed"}).ValidateUpdateAccountStatus())
	assert.Error(t, (&UpdateAccountStatus{}).ValidateUpdateAccountStatus())
}

func TestValidateSubmitServiceRequest(t *testing.T) {
	tests := []struct {
		name    string
		request SubmitServiceRequest
		wantErr bool
	}{
		{"valid deposit", SubmitServiceRequest{RequesterID: "cust-1", RequestType: "deposit", AccountID: "BNK1234567890", Amount: decimalPtr("10.00")}, false},
		{"valid other without amount", SubmitServiceRequest{RequesterID: "cust-1", RequestType: "other"}, false},
		{"deposit without account", SubmitServiceRequest{RequesterID: "cust-1", RequestType: "deposit", Amount: decimalPtr("10.00")}, true},
		{"withdrawal without amount", SubmitServiceRequest{RequesterID: "cust-1", RequestType: "withdrawal", AccountID: "BNK1234567890"}, true},
		{"negative amount", SubmitServiceRequest{RequesterID: "cust-1", RequestType: "deposit", AccountID: "BNK1234567890", Amount: decimalPtr("-1")}, true},
		{"unknown type", SubmitServiceRequest{RequesterID: "cust-1", RequestType: "refund"}, true},
		{"missing requester", SubmitServiceRequest{RequestType: "other"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.ValidateSubmitServiceRequest()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateApplyForLoan(t *testing.T) {
	assert.NoError(t, (&ApplyForLoan{BorrowerID: "cust-1", Amount: decimal.NewFromInt(1000)}).ValidateApplyForLoan())
	assert.Error(t, (&ApplyForLoan{Amount: decimal.NewFromInt(1000)}).ValidateApplyForLoan())
	assert.Error(t, (&ApplyForLoan{BorrowerID: "cust-1"}).ValidateApplyForLoan())
	assert.Error(t, (&ApplyForLoan{BorrowerID: "cust-1", Amount: decimal.NewFromInt(10), DurationMonths: -1}).ValidateApplyForLoan())
}

func TestApplyForLoan_ToLoanRateDefault(t *testing.T) {
	omitted := ApplyForLoan{BorrowerID: "cust-1", Amount: decimal.NewFromInt(1000)}
	assert.True(t, model.DefaultLoanInterestRate.Equal(omitted.ToLoan().InterestRate))

	interestFree := ApplyForLoan{BorrowerID: "cust-1", Amount: decimal.NewFromInt(1000), InterestRate: decimalPtr("0")}
	assert.True(t, interestFree.ToLoan().InterestRate.IsZero())
}

func TestValidateProcessServiceRequest(t *testing.T) {
	assert.NoError(t, (&ProcessServiceRequest{Action: "approve"}).ValidateProcessServiceRequest())
	// the action is checked by the processor, not here
	assert.NoError(t, (&ProcessServiceRequest{Note: "no action"}).ValidateProcessServiceRequest())
	assert.Error(t, (&ProcessServiceRequest{Action: "reject", Note: strings.Repeat("x", maxNoteLength+1)}).ValidateProcessServiceRequest())
}
