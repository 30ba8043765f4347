package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/L-Ayim/Vault/internal/database"
	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID}).Error)
	return user
}

// memoryStore keeps payloads in a map, standing in for S3.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Save(ctx context.Context, name string, payload io.Reader, size int64) (storage.Handle, error) {
	data, err := io.ReadAll(payload)
	if err != nil {
		return storage.Handle{}, err
	}
	key := fmt.Sprintf("test/%s-%s", uuid.New(), name)
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return storage.Handle{Key: key, URL: "memory://" + key}, nil
}

func (m *memoryStore) ResolveURL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("no object for key %s", key)
	}
	return "memory://" + key, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu             sync.Mutex
	resourceEvents []events.ResourceEvent
	groupEvents    []events.GroupEvent
}

func (p *recordingPublisher) PublishResourceEvent(ctx context.Context, event *events.ResourceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resourceEvents = append(p.resourceEvents, *event)
	return nil
}

func (p *recordingPublisher) PublishGroupEvent(ctx context.Context, event *events.GroupEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.groupEvents = append(p.groupEvents, *event)
	return nil
}

func (p *recordingPublisher) resourceActions(kind models.ResourceKind) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var actions []string
	for _, e := range p.resourceEvents {
		if e.ResourceKind == kind {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

func payload(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}
