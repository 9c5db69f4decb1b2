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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ledgerdesk/backoffice"
	"github.com/ledgerdesk/backoffice/api/middleware"
	"github.com/ledgerdesk/backoffice/config"
	"github.com/ledgerdesk/backoffice/internal/apierror"
)

type Api struct {
	backoffice *backoffice.Backoffice
	router     *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	decided := middleware.RequireActor()

	router.POST("/accounts", a.OpenAccount)
	router.GET("/accounts/:id", a.GetAccount)
	router.PUT("/accounts/:id/status", decided, a.UpdateAccountStatus)
	router.GET("/accounts/:id/ledger", a.GetLedger)

	router.POST("/requests", a.SubmitServiceRequest)
	router.GET("/requests/:id", a.GetServiceRequest)
	router.POST("/requests/:id/process", decided, a.ProcessServiceRequest)

	router.POST("/loans", a.ApplyForLoan)
	router.GET("/loans/:id", a.GetLoan)
	router.POST("/loans/:id/decide", decided, a.DecideLoan)
	router.GET("/loans/:id/schedule", a.GetSchedule)
	router.POST("/loans/:id/disburse", decided, a.DisburseLoan)
	router.POST("/loans/:id/complete", decided, a.CompleteLoan)
	return a.router
}

func NewAPI(b *backoffice.Backoffice) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{backoffice: b, router: r}
}

// respondError renders err as {"error": {"code", "message"}}. Causes attached to
// storage errors stay in the logs.
func respondError(c *gin.Context, err error) {
	var apiErr apierror.APIError
	if !errors.As(err, &apiErr) {
		logrus.Errorf("unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		apiErr = apierror.APIError{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": apiErr})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil))
}
