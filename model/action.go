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
	"strings"

	"github.com/ledgerdesk/backoffice/internal/apierror"
)

// Action is an administrative decision on a pending loan or service request.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
)

// ParseAction normalizes a caller supplied action. Unknown values fail with
// INVALID_ACTION.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	switch action {
	case ActionApprove, ActionReject, ActionComplete:
		return action, nil
	}
	return "", invalidAction(value)
}

func invalidAction(value interface{}) error {
	return apierror.NewAPIError(apierror.ErrInvalidAction, fmt.Sprintf("invalid action %q", value), nil)
}
