//go:build integration

// Package containers starts the Postgres, Redis and Kafka instances the
// integration suites run against. Each is started at most once per test
// binary and shared by every suite in it; Ryuk removes the containers when
// the process exits.
package containers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
	kafka    *KafkaContainer
}

var manager = &Manager{}

func GetManager() *Manager {
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	return start(t, &m.mu, &m.postgres, NewPostgresContainer)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	return start(t, &m.mu, &m.redis, NewRedisContainer)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	return start(t, &m.mu, &m.kafka, NewKafkaContainer)
}

func start[C any](t *testing.T, mu *sync.Mutex, slot **C, run func(*testing.T) *C) *C {
	t.Helper()
	mu.Lock()
	defer mu.Unlock()
	if *slot == nil {
		*slot = run(t)
	}
	return *slot
}

type terminator interface {
	Terminate(ctx context.Context, opts ...testcontainers.TerminateOption) error
}

func terminate(c terminator) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = c.Terminate(ctx)
}
