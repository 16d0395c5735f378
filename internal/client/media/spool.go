package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/spool"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/cryptox"
)

// ErrLocked is returned while no key has been set with Unlock.
var ErrLocked = errors.New("media spool is locked")

// Spool keeps the source audio of unconfirmed recordings sealed in the local
// database so a retry still works after a restart.
type Spool struct {
	repo spool.Repository

	mu  sync.RWMutex
	key []byte
}

func NewSpool(repo spool.Repository) *Spool {
	return &Spool{repo: repo}
}

// Unlock sets the AES key. It is derived from the doctor's password at login.
func (s *Spool) Unlock(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	common.WipeByteArray(s.key)
	s.key = append([]byte(nil), key...)
}

// Lock wipes the key.
func (s *Spool) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	common.WipeByteArray(s.key)
	s.key = nil
}

func (s *Spool) currentKey() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrLocked
	}
	return s.key, nil
}

func (s *Spool) Put(ctx context.Context, id string, m *models.Media) error {
	key, err := s.currentKey()
	if err != nil {
		return err
	}
	ct, nonce, err := cryptox.Seal(m.Data, key)
	if err != nil {
		return fmt.Errorf("seal %s: %w", id, err)
	}
	return s.repo.Put(ctx, spool.Blob{
		RecordID:    id,
		ContentType: m.ContentType,
		FileName:    m.FileName,
		Nonce:       nonce,
		Ciphertext:  ct,
	})
}

// Get returns common.ErrNotFound when nothing is spooled for id.
func (s *Spool) Get(ctx context.Context, id string) (*models.Media, error) {
	key, err := s.currentKey()
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := cryptox.Open(b.Ciphertext, b.Nonce, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return &models.Media{Data: data, ContentType: b.ContentType, FileName: b.FileName}, nil
}

func (s *Spool) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Has reports whether audio is spooled for id.
func (s *Spool) Has(ctx context.Context, id string) bool {
	_, err := s.repo.Get(ctx, id)
	return err == nil
}

// Prune deletes spooled audio whose id keep rejects.
func (s *Spool) Prune(ctx context.Context, keep func(id string) bool) (int, error) {
	ids, err := s.repo.IDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if keep(id) {
			continue
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
