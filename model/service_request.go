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

	"github.com/ledgerdesk/backoffice/internal/apierror"
)

type RequestType string

const (
	RequestDeposit         RequestType = "deposit"
	RequestWithdrawal      RequestType = "withdrawal"
	RequestAccountIssue    RequestType = "account_issue"
	RequestLoanApplication RequestType = "loan_application"
	RequestOther           RequestType = "other"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestDeposit, RequestWithdrawal, RequestAccountIssue, RequestLoanApplication, RequestOther:
		return true
	}
	return false
}

// EntryKind returns the ledger entry an approval of this request type posts, if any.
func (t RequestType) EntryKind() (EntryKind, bool) {
	switch t {
	case RequestDeposit:
		return EntryDeposit, true
	case RequestWithdrawal:
		return EntryWithdrawal, true
	}
	return "", false
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// ServiceRequest is a customer ask awaiting an administrative decision. It leaves
// pending exactly once; ProcessedBy and ProcessedAt are set with the terminal status.
type ServiceRequest struct {
	RequestID   string           `json:"request_id"`
	RequesterID string           `json:"requester_id"`
	Type        RequestType      `json:"request_type"`
	AccountID   string           `json:"account_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description string           `json:"description"`
	Status      RequestStatus    `json:"status"`
	AdminNote   string           `json:"admin_note,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	ProcessedBy string           `json:"processed_by,omitempty"`
}

// Validate checks a new request before it is stored.
func (r *ServiceRequest) Validate() error {
	if !r.Type.Valid() {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown request type %q", r.Type), nil)
	}
	if _, moves := r.Type.EntryKind(); moves {
		if r.AccountID == "" {
			return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("%s requests need an account", r.Type), nil)
		}
		if r.Amount == nil {
			return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("%s requests need an amount", r.Type), nil)
		}
	}
	if r.Amount != nil {
		return ValidateAmount(*r.Amount)
	}
	return nil
}

// Posting returns the ledger entry approval must post alongside the status change.
func (r *ServiceRequest) Posting(action Action) (EntryKind, decimal.Decimal, bool) {
	if action != ActionApprove {
		return "", decimal.Zero, false
	}
	kind, moves := r.Type.EntryKind()
	if !moves || r.AccountID == "" || r.Amount == nil {
		return "", decimal.Zero, false
	}
	return kind, *r.Amount, true
}

// Resolve applies an action to a pending request.
func (r *ServiceRequest) Resolve(action Action, actor, note string, at time.Time) error {
	if r.Status != RequestPending {
		return alreadyProcessed("request", r.RequestID, string(r.Status))
	}

	switch action {
	case ActionApprove:
		r.Status = RequestApproved
	case ActionReject:
		r.Status = RequestRejected
	case ActionComplete:
		r.Status = RequestCompleted
	default:
		return invalidAction(action)
	}

	r.ProcessedBy = actor
	r.ProcessedAt = ptr.Time(at)
	if note != "" {
		r.AdminNote = note
	}
	return nil
}
