package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/reminder"
	"gopkg.in/yaml.v3"
)

// policyDocument is the on-disk layout of a FileStore.
type policyDocument struct {
	Default  reminder.Policy            `yaml:"default"`
	Policies map[string]reminder.Policy `yaml:"policies,omitempty"`
}

// FileStore is a MemoryStore mirrored to a YAML file. Every mutation
// rewrites the whole file atomically.
type FileStore struct {
	path string
	mem  *reminder.MemoryStore

	// mu orders writes so the file always reflects the latest mutation.
	mu sync.Mutex
}

// OpenFileStore loads path, or starts from fallback when it does not exist.
func OpenFileStore(path string, fallback reminder.Policy) (*FileStore, error) {
	s := &FileStore{path: path, mem: reminder.NewMemoryStore(fallback)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPolicyFileRead, err)
	}

	doc := policyDocument{Default: fallback}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPolicyFileParse, err)
	}

	policies := make(map[uuid.UUID]reminder.Policy, len(doc.Policies))
	for key, p := range doc.Policies {
		id, err := uuid.Parse(key)
		if err != nil {
			slog.Warn(config.ErrPolicyFileParse,
				config.LogKeyComponent, config.CompStore,
				config.LogKeyKey, key,
				config.LogKeyError, err,
			)
			continue
		}
		policies[id] = p
	}
	s.mem.Restore(doc.Default, policies)
	return s, nil
}

func (s *FileStore) Policy(ctx context.Context, id uuid.UUID) (reminder.Policy, error) {
	return s.mem.Policy(ctx, id)
}

func (s *FileStore) SetPolicy(ctx context.Context, id uuid.UUID, p reminder.Policy) error {
	return s.mutate(func() error { return s.mem.SetPolicy(ctx, id, p) })
}

func (s *FileStore) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	return s.mutate(func() error { return s.mem.DeletePolicy(ctx, id) })
}

func (s *FileStore) DefaultPolicy(ctx context.Context) (reminder.Policy, error) {
	return s.mem.DefaultPolicy(ctx)
}

func (s *FileStore) SetDefaultPolicy(ctx context.Context, p reminder.Policy) error {
	return s.mutate(func() error { return s.mem.SetDefaultPolicy(ctx, p) })
}

func (s *FileStore) mutate(apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, _ := s.mem.DefaultPolicy(context.Background())
	prev := s.mem.Snapshot()

	if err := apply(); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		// Memory must keep matching the file.
		s.mem.Restore(def, prev)
		return err
	}
	return nil
}

func (s *FileStore) flush() error {
	def, _ := s.mem.DefaultPolicy(context.Background())
	doc := policyDocument{Default: def, Policies: make(map[string]reminder.Policy)}
	for id, p := range s.mem.Snapshot() {
		doc.Policies[id.String()] = p
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicyFileWrite, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), config.DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicyFileWrite, err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicyFileWrite, err)
	}
	if err := os.Chmod(s.path, config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicyFileWrite, err)
	}
	return nil
}
