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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/ledgerdesk/backoffice/api/model"
	"github.com/ledgerdesk/backoffice/model"
)

func (a Api) OpenAccount(c *gin.Context) {
	var newAccount model2.OpenAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		badRequest(c, err)
		return
	}

	if err := newAccount.ValidateOpenAccount(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.backoffice.OpenAccount(c.Request.Context(), newAccount.OwnerID, newAccount.ToAccountType())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetAccount(c *gin.Context) {
	account, err := a.backoffice.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a Api) UpdateAccountStatus(c *gin.Context) {
	var update model2.UpdateAccountStatus
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	if err := update.ValidateUpdateAccountStatus(); err != nil {
		badRequest(c, err)
		return
	}

	account, err := a.backoffice.UpdateAccountStatus(c.Request.Context(), c.Param("id"), model.AccountStatus(update.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a Api) GetLedger(c *gin.Context) {
	entries, err := a.backoffice.GetLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
