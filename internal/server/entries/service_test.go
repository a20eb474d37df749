package entries

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/imagex"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/server/models"
)

type memImages struct {
	mu   sync.Mutex
	objs map[string][]byte
	err  error
}

func (m *memImages) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.objs == nil {
		m.objs = map[string][]byte{}
	}
	m.objs[key] = data
	return nil
}

func (m *memImages) URL(_ context.Context, key string) (string, error) {
	return "https://images.test/" + key, nil
}

func entry(client string, created time.Time) models.Entry {
	return models.Entry{
		ClientEntryID:   client,
		ContainerNumber: "MSCU1234567",
		Size:            "20ft",
		EntryType:       "receiving",
		UserID:          "u-1",
		UserName:        "Ama",
		CreatedAt:       created,
	}
}

func TestCreate_DeduplicatesOnClientID(t *testing.T) {
	s := NewService(nil, logging.Discard())
	ctx := context.Background()
	now := time.Now()

	id, dup, err := s.Create(ctx, entry("c-1", now))
	require.NoError(t, err)
	assert.False(t, dup)

	again, dup, err := s.Create(ctx, entry("c-1", now))
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, id, again)

	_, dup, err = s.Create(ctx, entry("", now))
	require.NoError(t, err)
	assert.False(t, dup)
	_, dup, err = s.Create(ctx, entry("", now))
	require.NoError(t, err)
	assert.False(t, dup, "entries without a client id are never merged")

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCreate_ConcurrentRetries(t *testing.T) {
	s := NewService(nil, logging.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Create(ctx, entry("same", time.Now()))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreate_Invalid(t *testing.T) {
	s := NewService(nil, logging.Discard())
	_, _, err := s.Create(context.Background(), models.Entry{Size: "20ft"})
	require.ErrorIs(t, err, ErrInvalidEntry)
	assert.ErrorContains(t, err, "container_number")
	assert.ErrorContains(t, err, "user_id")
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	s := NewService(nil, logging.Discard())
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, c := range []string{"a", "b", "c"} {
		e := entry(c, base.Add(time.Duration(i)*time.Hour))
		e.ContainerNumber = c
		_, _, err := s.Create(ctx, e)
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ContainerNumber)
	assert.Equal(t, "b", list[1].ContainerNumber)
}

func TestRequestDeletion_FlagsOnce(t *testing.T) {
	s := NewService(nil, logging.Discard())
	ctx := context.Background()

	id, _, err := s.Create(ctx, entry("c-1", time.Now()))
	require.NoError(t, err)

	already, err := s.RequestDeletion(ctx, id, "Ama")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = s.RequestDeletion(ctx, id, "Kofi")
	require.NoError(t, err)
	assert.True(t, already)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].DeletionRequested)
	assert.Equal(t, "Ama", list[0].DeletionRequestedBy, "the first request is kept")
	assert.False(t, list[0].DeletionRequestedAt.IsZero())

	_, err = s.RequestDeletion(ctx, "missing", "Ama")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreate_MovesImageToStore(t *testing.T) {
	images := &memImages{}
	s := NewService(images, logging.Discard())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	e := entry("c-1", time.Now())
	e.ContainerImage = imagex.DataURL("image/jpeg", []byte{0xff, 0xd8, 0xff})
	id, _, err := s.Create(ctx, e)
	require.NoError(t, err)

	key := "entries/2024/05/01/" + id + ".jpg"
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, images.objs[key])

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://images.test/"+key, list[0].ContainerImage)
}

func TestCreate_ImageStoreFailureIsRetryable(t *testing.T) {
	images := &memImages{err: errors.New("bucket offline")}
	s := NewService(images, logging.Discard())
	ctx := context.Background()

	e := entry("c-1", time.Now())
	e.ContainerImage = imagex.DataURL("image/png", []byte{1})
	_, _, err := s.Create(ctx, e)
	require.Error(t, err)

	images.err = nil
	_, dup, err := s.Create(ctx, e)
	require.NoError(t, err)
	assert.False(t, dup, "a failed attempt leaves no trace")
}

func TestStorageKey(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "entries/2024/12/31/x.png", StorageKey("x", "image/png", at))
	assert.Equal(t, "entries/2024/12/31/x.jpg", StorageKey("x", "image/jpeg", at))
}
