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

func (a Api) SubmitServiceRequest(c *gin.Context) {
	var newRequest model2.SubmitServiceRequest
	if err := c.ShouldBindJSON(&newRequest); err != nil {
		badRequest(c, err)
		return
	}
	if err := newRequest.ValidateSubmitServiceRequest(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.backoffice.SubmitServiceRequest(c.Request.Context(), newRequest.ToServiceRequest())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetServiceRequest(c *gin.Context) {
	resp, err := a.backoffice.GetServiceRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ProcessServiceRequest(c *gin.Context) {
	var decision model2.ProcessServiceRequest
	if err := c.ShouldBindJSON(&decision); err != nil {
		badRequest(c, err)
		return
	}
	if err := decision.ValidateProcessServiceRequest(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.backoffice.ProcessServiceRequest(c.Request.Context(), c.Param("id"), decision.Action,
		middleware.Actor(c), decision.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
