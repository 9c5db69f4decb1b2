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

package backoffice

import (
	"embed"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/ledgerdesk/backoffice/config"
	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/cache"
	redis_db "github.com/ledgerdesk/backoffice/internal/redis-db"
)

// Backoffice is the request processing and loan lifecycle engine. Every balance
// mutation goes through it.
type Backoffice struct {
	queue      *Queue
	redis      redis.UniversalClient
	cache      cache.Cache
	datasource database.IDataSource
	config     *config.Configuration
	now        func() time.Time
}

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("backoffice.core")

// NewBackoffice wires the engine around a datasource using the loaded configuration.
func NewBackoffice(db database.IDataSource) (*Backoffice, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	newQueue, err := NewQueue(configuration)
	if err != nil {
		return nil, err
	}

	return &Backoffice{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		cache:      cache.New(redisClient.Client()),
		config:     configuration,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the queue and redis connections.
func (b *Backoffice) Close() error {
	if err := b.queue.Close(); err != nil {
		logrus.Errorf("failed to close queue client: %v", err)
	}
	return b.redis.Close()
}

func (b *Backoffice) lockTimings() (ttl, wait time.Duration) {
	ttl, wait = b.config.Lock.TTL(), b.config.Lock.Wait()
	if ttl <= 0 {
		ttl = config.DEFAULT_LOCK_TTL_MS * time.Millisecond
	}
	if wait <= 0 {
		wait = config.DEFAULT_LOCK_WAIT_MS * time.Millisecond
	}
	return ttl, wait
}
