// Package credential stores the assistant API key.
package credential

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/makistry/meshview/internal/config"
	"go.uber.org/zap"
)

// Key is the fixed name the credential is stored under
const Key = "assistant_api_key"

// Provider reads and writes the single assistant credential. Get returns an
// empty string and no error when nothing is stored.
type Provider interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	value string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, nil
}

func (m *MemoryStore) Set(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = strings.TrimSpace(value)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	return nil
}

// Mask hides all but the last four characters of a credential
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// FromConfig builds the provider selected by the assistant configuration
func FromConfig(cfg config.AssistantConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.CredentialStore {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		path := cfg.CredentialFile
		if path == "" {
			path = DefaultFilePath()
		}
		return NewFileStore(path, logger), nil
	case "redis":
		return NewRedisStore(RedisOptions{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, logger), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.CredentialStore)
	}
}
