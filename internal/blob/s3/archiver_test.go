package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// memBlobs is an in-memory bucket implementing both blob interfaces.
type memBlobs struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBlobs) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

func (m *memBlobs) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "")
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.BlobInfo{Path: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

type memAudit struct{ events []string }

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2025, 1, 31, 14, 25, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, "snapshots/2025/01/31/132500.jsonl.gz", ArchiveKey(at))
}

func TestArchiveThenLoad(t *testing.T) {
	blobs := newMemBlobs()
	audit := &memAudit{}
	a := NewArchiver(blobs, blobs, audit)
	ctx := context.Background()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := []domain.PoolSnapshot{
		{ID: "0x1", Name: "BTC > 100k", BullReserve: 10, CreatedAt: &created},
		{ID: "0x2", Name: "ETH <b>", BearReserve: 3},
	}
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	key, err := a.Archive(ctx, snaps, at)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/2025/02/03/040506.jsonl.gz", key)
	assert.Equal(t, archiveContentType, blobs.types[key])
	assert.Equal(t, []string{"archive.snapshots"}, audit.events)

	keys, err := a.List(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	loaded, err := a.Load(ctx, key)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "0x1", loaded[0].ID)
	assert.Equal(t, uint64(10), loaded[0].BullReserve)
	require.NotNil(t, loaded[0].CreatedAt)
	assert.True(t, created.Equal(*loaded[0].CreatedAt))
	assert.Equal(t, "ETH <b>", loaded[1].Name)
}

func TestArchiveEmptyBatchWritesNothing(t *testing.T) {
	blobs := newMemBlobs()
	key, err := NewArchiver(blobs, nil, nil).Archive(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, blobs.objects)
}

func TestLoadMissingKey(t *testing.T) {
	blobs := newMemBlobs()
	_, err := NewArchiver(blobs, blobs, nil).Load(context.Background(), "snapshots/none.jsonl.gz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadRejectsPlainText(t *testing.T) {
	blobs := newMemBlobs()
	blobs.objects["snapshots/bad.jsonl.gz"] = []byte("{not gzip")
	_, err := NewArchiver(blobs, blobs, nil).Load(context.Background(), "snapshots/bad.jsonl.gz")
	assert.Error(t, err)
}

func TestWithScheme(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", withScheme("s3.example.com", true))
	assert.Equal(t, "http://minio:9000", withScheme("minio:9000", false))
	assert.Equal(t, "http://localhost:9000", withScheme("http://localhost:9000", true))
}
