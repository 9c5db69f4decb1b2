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

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrInsufficientFunds     ErrorCode = "INSUFFICIENT_FUNDS"
	ErrAlreadyProcessed      ErrorCode = "ALREADY_PROCESSED"
	ErrInvalidAction         ErrorCode = "INVALID_ACTION"
	ErrInvalidLoanParameters ErrorCode = "INVALID_LOAN_PARAMETERS"
	ErrStorageUnavailable    ErrorCode = "STORAGE_UNAVAILABLE"
	ErrNotFound              ErrorCode = "NOT_FOUND"
	ErrConflict              ErrorCode = "CONFLICT"
	ErrInvalidInput          ErrorCode = "INVALID_INPUT"
)

// APIError is the structured error every core operation returns. Details carries the
// underlying cause for logs only and is never serialized.
type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"-"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Is reports whether err, or any error it wraps, is an APIError with the given code.
func Is(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// Storage wraps a driver or connection failure. The cause is logged, the caller only
// sees that the ledger store could not complete the unit of work.
func Storage(message string, cause error) APIError {
	return NewAPIError(ErrStorageUnavailable, message, cause)
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrAlreadyProcessed:
			return http.StatusConflict
		case ErrInvalidInput, ErrInvalidAction, ErrInvalidLoanParameters:
			return http.StatusBadRequest
		case ErrInsufficientFunds:
			return http.StatusUnprocessableEntity
		case ErrStorageUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
