package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aristath/copydash/internal/database"
	testutil "github.com/aristath/copydash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for key, data := range m.objects {
		out = append(out, Object{Key: key, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newTestBackupService(t *testing.T, store ObjectStore, now time.Time) *BackupService {
	portals, cleanupPortals := testutil.NewTestDB(t, "portals")
	t.Cleanup(cleanupPortals)
	sessions, cleanupSessions := testutil.NewTestDB(t, "sessions")
	t.Cleanup(cleanupSessions)

	_, err := portals.Conn().Exec(`INSERT INTO portals (id, name, slug, profile_id, strategy_id, created_at, updated_at)
		VALUES ('id-1', 'Alpha', 'alpha', 'p1', 's1', 0, 0)`)
	require.NoError(t, err)

	svc := NewBackupService(store, []*database.DB{portals, sessions}, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
	svc.now = func() time.Time { return now }
	return svc
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUpload(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	svc := newTestBackupService(t, store, now)

	name, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "copydash-backup-2026-03-10-030000.tar.gz", name)

	files := readArchive(t, store.objects[name])
	require.Contains(t, files, "portals.db")
	require.Contains(t, files, "sessions.db")
	require.Contains(t, files, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files["backup-metadata.json"], &metadata))
	assert.Equal(t, now, metadata.Timestamp)
	require.Len(t, metadata.Databases, 2)
	for _, db := range metadata.Databases {
		content := files[db.Filename]
		assert.Equal(t, int64(len(content)), db.SizeBytes)
		assert.Equal(t, fmt.Sprintf("sha256:%x", sha256.Sum256(content)), db.Checksum)
	}

	entries, err := os.ReadDir(svc.dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory removed")
}

func TestCreateAndUpload_UploadError(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unavailable")
	svc := newTestBackupService(t, store, time.Now())

	_, err := svc.CreateAndUpload(context.Background())
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestListBackups(t *testing.T) {
	store := newMemoryStore()
	store.objects["copydash-backup-2026-03-01-030000.tar.gz"] = []byte("a")
	store.objects["copydash-backup-2026-03-09-030000.tar.gz"] = []byte("bb")
	store.objects["copydash-backup-garbage.tar.gz"] = []byte("c")
	store.objects["unrelated.txt"] = []byte("d")

	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	svc := NewBackupService(store, nil, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
	svc.now = func() time.Time { return now }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "copydash-backup-2026-03-09-030000.tar.gz", backups[0].Filename)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.Equal(t, int64(24), backups[0].AgeHours)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)
	for day := 1; day <= 6; day++ {
		key := fmt.Sprintf("copydash-backup-2026-03-%02d-030000.tar.gz", day)
		store.objects[key] = []byte("x")
	}
	store.objects["copydash-backup-2026-03-30-030000.tar.gz"] = []byte("x")

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
	svc.now = func() time.Time { return now }

	deleted, err := svc.RotateOldBackups(context.Background(), 14)
	require.NoError(t, err)

	// newest three survive: 03-30, 03-06, 03-05
	assert.Equal(t, 4, deleted)
	assert.Len(t, store.objects, 3)
	assert.Contains(t, store.objects, "copydash-backup-2026-03-30-030000.tar.gz")
	assert.Contains(t, store.objects, "copydash-backup-2026-03-05-030000.tar.gz")
}

func TestRotateOldBackups_KeepsEverythingWithoutRetention(t *testing.T) {
	store := newMemoryStore()
	for day := 1; day <= 5; day++ {
		store.objects[fmt.Sprintf("copydash-backup-2020-01-%02d-030000.tar.gz", day)] = []byte("x")
	}
	svc := NewBackupService(store, nil, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))

	deleted, err := svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.objects, 5)
}

func TestBackupJob(t *testing.T) {
	store := newMemoryStore()
	svc := newTestBackupService(t, store, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC))
	job := NewBackupJob(svc, 14, zerolog.New(nil).Level(zerolog.Disabled))

	assert.Equal(t, "r2_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.objects, 1)

	store.uploadErr = errors.New("down")
	assert.Error(t, job.Run())
}
