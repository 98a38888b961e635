package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"
)

type manager struct {
	mu        sync.RWMutex
	providers map[string]Factory
	instances map[string]VectorStore
	building  singleflight.Group
}

var defaultManager = newManager()

func newManager() *manager {
	return &manager{
		providers: make(map[string]Factory),
		instances: make(map[string]VectorStore),
	}
}

// GetManager returns the process-wide registry.
func GetManager() Manager {
	return defaultManager
}

// instanceKey identifies a store by provider plus a digest of its config.
// ConfigStd sorts map keys, so equal configs always hash the same.
func instanceKey(provider string, config map[string]interface{}) (string, error) {
	raw, err := sonic.ConfigStd.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("knowledge: hash %s config: %w", provider, err)
	}
	sum := sha256.Sum256(raw)
	return provider + ":" + hex.EncodeToString(sum[:8]), nil
}

func (m *manager) GetVectorStore(provider string, config map[string]interface{}) (VectorStore, error) {
	m.mu.RLock()
	factory, ok := m.providers[provider]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf(ErrUnsupportedProvider, provider)
	}

	key, err := instanceKey(provider, config)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	store, ok := m.instances[key]
	m.mu.RUnlock()
	if ok {
		return store, nil
	}

	// concurrent first lookups share one dial
	v, err, _ := m.building.Do(key, func() (interface{}, error) {
		m.mu.RLock()
		existing, ok := m.instances[key]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}
		built, err := factory(config)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.instances[key] = built
		m.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(VectorStore), nil
}

// ClearCache drops built instances; providers stay registered.
func (m *manager) ClearCache() {
	m.mu.Lock()
	m.instances = make(map[string]VectorStore)
	m.mu.Unlock()
}

func (m *manager) RegisterProvider(name string, factory Factory) {
	m.mu.Lock()
	m.providers[name] = factory
	m.mu.Unlock()
}

func (m *manager) ListProviders() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

func GetVectorStoreByProvider(provider string, config map[string]interface{}) (VectorStore, error) {
	return defaultManager.GetVectorStore(provider, config)
}

func RegisterVectorStoreProvider(name string, factory Factory) {
	defaultManager.RegisterProvider(name, factory)
}
