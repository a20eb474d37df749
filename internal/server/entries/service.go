// Package entries stores container entries for the development server.
//
// Entries live in memory. Images can be moved to S3-compatible object
// storage, in which case listings carry a presigned URL instead of the
// original data URL.
package entries

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/imagex"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/server/models"
)

var ErrInvalidEntry = errors.New("invalid entry")

type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	URL(ctx context.Context, key string) (string, error)
}

type Service struct {
	images ImageStore
	log    logging.Logger
	now    func() time.Time

	mu       sync.RWMutex
	entries  []*models.Entry
	byClient map[string]*models.Entry
}

func NewService(images ImageStore, log logging.Logger) *Service {
	return &Service{
		images:   images,
		log:      log.With("module", "entries"),
		now:      time.Now,
		byClient: make(map[string]*models.Entry),
	}
}

func validate(e *models.Entry) error {
	var missing []string
	if e.ContainerNumber == "" {
		missing = append(missing, "container_number")
	}
	if e.Size == "" {
		missing = append(missing, "size")
	}
	if e.EntryType == "" {
		missing = append(missing, "entry_type")
	}
	if e.UserID == "" {
		missing = append(missing, "user_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidEntry, strings.Join(missing, ", "))
	}
	return nil
}

// StorageKey places an image under a per-day prefix.
func StorageKey(id, mime string, at time.Time) string {
	ext := strings.TrimPrefix(mime, "image/")
	if ext == "jpeg" {
		ext = "jpg"
	}
	return path.Join("entries", at.UTC().Format("2006/01/02"), id+"."+ext)
}

// Create stores e. An entry whose ClientEntryID was seen before is not
// stored again; the id of the first copy is returned with duplicate set.
func (s *Service) Create(ctx context.Context, e models.Entry) (id string, duplicate bool, err error) {
	if err := validate(&e); err != nil {
		return "", false, err
	}

	if e.ClientEntryID != "" {
		s.mu.RLock()
		prev, ok := s.byClient[e.ClientEntryID]
		s.mu.RUnlock()
		if ok {
			return prev.ID, true, nil
		}
	}

	e.ID = uuid.NewString()
	e.ReceivedAt = s.now()

	if s.images != nil && e.ContainerImage != "" {
		mime, data, err := imagex.ParseDataURL(e.ContainerImage)
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		k := StorageKey(e.ID, mime, e.ReceivedAt)
		if err := s.images.Put(ctx, k, mime, data); err != nil {
			return "", false, fmt.Errorf("store image: %w", err)
		}
		e.ImageKey, e.ContainerImage = k, ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a concurrent retry of the same entry may have won
	if e.ClientEntryID != "" {
		if prev, ok := s.byClient[e.ClientEntryID]; ok {
			return prev.ID, true, nil
		}
		s.byClient[e.ClientEntryID] = &e
	}
	s.entries = append(s.entries, &e)

	s.log.Info(ctx, "entry stored", "id", e.ID, "client_entry_id", e.ClientEntryID, "container", e.ContainerNumber)
	return e.ID, false, nil
}

// List returns up to limit entries, newest capture time first. A limit of
// zero or less means all.
func (s *Service) List(ctx context.Context, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	if s.images != nil {
		for i := range out {
			if out[i].ImageKey == "" {
				continue
			}
			url, err := s.images.URL(ctx, out[i].ImageKey)
			if err != nil {
				return nil, fmt.Errorf("image url: %w", err)
			}
			out[i].ContainerImage = url
		}
	}
	return out, nil
}

// RequestDeletion flags entry id for removal by an administrator. Flagging an
// entry twice keeps the first request and reports already.
func (s *Service) RequestDeletion(ctx context.Context, id, by string) (already bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID != id {
			continue
		}
		if e.DeletionRequested {
			return true, nil
		}
		e.DeletionRequested = true
		e.DeletionRequestedAt = s.now()
		e.DeletionRequestedBy = by
		s.log.Info(ctx, "deletion requested", "id", id, "by", by)
		return false, nil
	}
	return false, fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
}
