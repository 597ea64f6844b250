package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dylanmazurek/debridify/internal/request"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
)

var (
	ErrNotFound   = errors.New("no credential stored for provider")
	ErrNoProvider = errors.New("no active provider selected")
)

// Store holds one API key per provider.
type Store interface {
	Get(ctx context.Context, p models.Provider) (string, error)
	Set(ctx context.Context, p models.Provider, key string) error
	Clear(ctx context.Context, p models.Provider) error
}

// Selector remembers which provider the user works with.
type Selector interface {
	Active(ctx context.Context) (models.Provider, error)
	SetActive(ctx context.Context, p models.Provider) error
}

// Lookup adapts a store to the request pipeline. A missing key falls back to
// fallback, which may be empty.
func Lookup(store Store, p models.Provider, fallback string) request.CredentialFunc {
	if store == nil {
		return request.StaticCredential(fallback)
	}

	return func(ctx context.Context) (string, error) {
		key, err := store.Get(ctx, p)
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}
		if err != nil {
			return "", err
		}

		return key, nil
	}
}

type MemoryStore struct {
	mu     sync.RWMutex
	keys   map[models.Provider]string
	active models.Provider
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Selector = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[models.Provider]string)}
}

func (m *MemoryStore) Get(_ context.Context, p models.Provider) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.keys[p]
	if !ok || key == "" {
		return "", ErrNotFound
	}

	return key, nil
}

func (m *MemoryStore) Set(_ context.Context, p models.Provider, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[p] = key
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, p models.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, p)
	return nil
}

func (m *MemoryStore) Active(_ context.Context) (models.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == "" {
		return "", ErrNoProvider
	}

	return m.active, nil
}

func (m *MemoryStore) SetActive(_ context.Context, p models.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = p
	return nil
}

type fileState struct {
	Active models.Provider            `json:"active,omitempty"`
	Keys   map[models.Provider]string `json:"keys"`
}

// FileStore persists keys and the active provider to a JSON file readable only by the owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var (
	_ Store    = (*FileStore)(nil)
	_ Selector = (*FileStore)(nil)
)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (*fileState, error) {
	state := &fileState{Keys: make(map[models.Provider]string)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if state.Keys == nil {
		state.Keys = make(map[models.Provider]string)
	}

	return state, nil
}

func (f *FileStore) save(state *fileState) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	return os.Rename(tmp, f.path)
}

func (f *FileStore) update(fn func(*fileState)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return err
	}

	fn(state)
	return f.save(state)
}

func (f *FileStore) Get(_ context.Context, p models.Provider) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return "", err
	}

	key, ok := state.Keys[p]
	if !ok || key == "" {
		return "", ErrNotFound
	}

	return key, nil
}

func (f *FileStore) Set(_ context.Context, p models.Provider, key string) error {
	return f.update(func(s *fileState) { s.Keys[p] = key })
}

func (f *FileStore) Clear(_ context.Context, p models.Provider) error {
	return f.update(func(s *fileState) {
		delete(s.Keys, p)
		if s.Active == p {
			s.Active = ""
		}
	})
}

func (f *FileStore) Active(_ context.Context) (models.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return "", err
	}
	if state.Active == "" {
		return "", ErrNoProvider
	}

	return state.Active, nil
}

func (f *FileStore) SetActive(_ context.Context, p models.Provider) error {
	return f.update(func(s *fileState) { s.Active = p })
}

type ctxKey struct{}

type ctxCredential struct {
	provider models.Provider
	key      string
}

// WithCredential scopes a key to one request, as set by the HTTP session middleware.
func WithCredential(ctx context.Context, p models.Provider, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ctxCredential{provider: p, key: key})
}

// ContextStore reads the key placed by WithCredential. It is read-only.
type ContextStore struct{}

var _ Store = ContextStore{}

func (ContextStore) Get(ctx context.Context, p models.Provider) (string, error) {
	c, ok := ctx.Value(ctxKey{}).(ctxCredential)
	if !ok || c.provider != p || c.key == "" {
		return "", ErrNotFound
	}

	return c.key, nil
}

func (ContextStore) Set(context.Context, models.Provider, string) error {
	return errors.New("context credentials are read-only")
}

func (ContextStore) Clear(context.Context, models.Provider) error {
	return errors.New("context credentials are read-only")
}

// Layered returns the first key found across stores. Writes go to the primary.
type Layered struct {
	Primary Store
	Others  []Store
}

var _ Store = (*Layered)(nil)

func NewLayered(primary Store, others ...Store) *Layered {
	return &Layered{Primary: primary, Others: others}
}

func (l *Layered) Get(ctx context.Context, p models.Provider) (string, error) {
	for _, s := range append([]Store{l.Primary}, l.Others...) {
		if s == nil {
			continue
		}

		key, err := s.Get(ctx, p)
		if errors.Is(err, ErrNotFound) {
			continue
		}

		return key, err
	}

	return "", ErrNotFound
}

func (l *Layered) Set(ctx context.Context, p models.Provider, key string) error {
	return l.Primary.Set(ctx, p, key)
}

func (l *Layered) Clear(ctx context.Context, p models.Provider) error {
	return l.Primary.Clear(ctx, p)
}
