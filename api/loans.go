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

	"github.com/ledgerdesk/backoffice/api/middleware"
	model2 "github.com/ledgerdesk/backoffice/api/model"
)

func (a Api) ApplyForLoan(c *gin.Context) {
	var application model2.ApplyForLoan
	if err := c.ShouldBindJSON(&application); err != nil {
		badRequest(c, err)
		return
	}
	if err := application.ValidateApplyForLoan(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.backoffice.ApplyForLoan(c.Request.Context(), application.ToLoan())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetLoan(c *gin.Context) {
	resp, err := a.backoffice.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DecideLoan(c *gin.Context) {
	var decision model2.DecideLoan
	if err := c.ShouldBindJSON(&decision); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.backoffice.DecideLoan(c.Request.Context(), c.Param("id"), decision.Action, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetSchedule(c *gin.Context) {
	resp, err := a.backoffice.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DisburseLoan(c *gin.Context) {
	resp, err := a.backoffice.DisburseLoan(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) CompleteLoan(c *gin.Context) {
	resp, err := a.backoffice.CompleteLoan(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
