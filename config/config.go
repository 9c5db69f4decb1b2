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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT               = "5001"
	DEFAULT_WEBHOOK_QUEUE      = "backoffice_webhooks"
	DEFAULT_MAINTENANCE_QUEUE  = "backoffice_maintenance"
	DEFAULT_WORKER_CONCURRENCY = 10
	DEFAULT_OVERDUE_SWEEP_CRON = "@every 1h"
	DEFAULT_MONITORING_PORT    = "5004"
	DEFAULT_LOCK_TTL_MS        = 5000
	DEFAULT_LOCK_WAIT_MS       = 3000
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"BACKOFFICE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"BACKOFFICE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"BACKOFFICE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"BACKOFFICE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"BACKOFFICE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"BACKOFFICE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"BACKOFFICE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"BACKOFFICE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"BACKOFFICE_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	WebhookQueue      string `json:"webhook_queue" envconfig:"BACKOFFICE_QUEUE_WEBHOOK"`
	MaintenanceQueue  string `json:"maintenance_queue" envconfig:"BACKOFFICE_QUEUE_MAINTENANCE"`
	WorkerConcurrency int    `json:"worker_concurrency" envconfig:"BACKOFFICE_QUEUE_WORKER_CONCURRENCY"`
	OverdueSweepCron  string `json:"overdue_sweep_cron" envconfig:"BACKOFFICE_QUEUE_OVERDUE_SWEEP_CRON"`
	MonitoringPort    string `json:"monitoring_port" envconfig:"BACKOFFICE_QUEUE_MONITORING_PORT"`
}

// LockConfig controls the per-account lock taken around every balance mutation.
type LockConfig struct {
	TTLMillis  int `json:"ttl_ms" envconfig:"BACKOFFICE_LOCK_TTL_MS"`
	WaitMillis int `json:"wait_ms" envconfig:"BACKOFFICE_LOCK_WAIT_MS"`
}

func (l LockConfig) TTL() time.Duration {
	return time.Duration(l.TTLMillis) * time.Millisecond
}

func (l LockConfig) Wait() time.Duration {
	return time.Duration(l.WaitMillis) * time.Millisecond
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"BACKOFFICE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"BACKOFFICE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"BACKOFFICE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"BACKOFFICE_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"BACKOFFICE_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type TelemetryConfig struct {
	Enabled bool `json:"enabled" envconfig:"BACKOFFICE_TELEMETRY_ENABLED"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"BACKOFFICE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Queue        QueueConfig      `json:"queue"`
	Lock         LockConfig       `json:"lock"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Telemetry    TelemetryConfig  `json:"telemetry"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("backoffice", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called backoffice.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Backoffice"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Server.Secure && cnf.Server.SecretKey == "" {
		return errors.New("server secret key is required when secure mode is enabled")
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.MaintenanceQueue == "" {
		cnf.Queue.MaintenanceQueue = DEFAULT_MAINTENANCE_QUEUE
	}
	if cnf.Queue.WorkerConcurrency <= 0 {
		cnf.Queue.WorkerConcurrency = DEFAULT_WORKER_CONCURRENCY
	}
	if cnf.Queue.OverdueSweepCron == "" {
		cnf.Queue.OverdueSweepCron = DEFAULT_OVERDUE_SWEEP_CRON
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	if cnf.Lock.TTLMillis <= 0 {
		cnf.Lock.TTLMillis = DEFAULT_LOCK_TTL_MS
	}
	if cnf.Lock.WaitMillis <= 0 {
		cnf.Lock.WaitMillis = DEFAULT_LOCK_WAIT_MS
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
