package profile

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefixSealer struct{}

func (prefixSealer) Encrypt(plaintext []byte) (string, error) {
	return "sealed:" + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (prefixSealer) Decrypt(ciphertext string) ([]byte, error) {
	if !strings.HasPrefix(ciphertext, "sealed:") {
		return nil, errors.New("not sealed")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, "sealed:"))
}

func openMemoryStore(t *testing.T, sealer Sealer) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), ":memory:", sealer)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleProfile(t *testing.T) *PatientProfile {
	t.Helper()
	return newTestDeriver().Derive(QuestionnaireAnswers{
		"mainReason":       "Ansiedade",
		"treatmentReasons": []string{"Ansiedade", "Insônia"},
		"medicationType":   "Óleo",
		"doseAmount":       "5 gotas",
		"frequency":        "Duas vezes ao dia",
	})
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, nil)
	want := sampleProfile(t)

	require.NoError(t, store.Save(ctx, LocalProfileKey, want))

	got, err := store.Load(ctx, LocalProfileKey)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLiteStoreLoadMissing(t *testing.T) {
	store := openMemoryStore(t, nil)

	_, err := store.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSQLiteStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, nil)
	d := newTestDeriver()

	first := d.Derive(QuestionnaireAnswers{"mainReason": "Ansiedade"})
	second := d.Derive(QuestionnaireAnswers{"mainReason": "Epilepsia"})
	require.NoError(t, store.Save(ctx, "p1", first))
	require.NoError(t, store.Save(ctx, "p1", second))

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "Epilepsia", got.MainCondition.Primary)
}

func TestSQLiteStoreClear(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, nil)

	require.NoError(t, store.Save(ctx, "p1", sampleProfile(t)))
	require.NoError(t, store.Clear(ctx, "p1"))

	_, err := store.Load(ctx, "p1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	// Clearing an absent profile is not an error.
	assert.NoError(t, store.Clear(ctx, "p1"))
}

func TestSQLiteStoreSealsBlob(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, prefixSealer{})
	want := sampleProfile(t)

	require.NoError(t, store.Save(ctx, "p1", want))

	var raw string
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT value FROM profile_blobs WHERE key = ?", "p1").Scan(&raw))
	assert.True(t, strings.HasPrefix(raw, "sealed:"))
	assert.NotContains(t, raw, "Ansiedade")

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBlobCodecRejectsForeignBlob(t *testing.T) {
	_, err := blobCodec{sealer: prefixSealer{}}.decode(`{"id":"x"}`)
	assert.Error(t, err)
}

type countingStore struct {
	Store
	loads int
}

func (s *countingStore) Load(ctx context.Context, patientID string) (*PatientProfile, error) {
	s.loads++
	return s.Store.Load(ctx, patientID)
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: openMemoryStore(t, nil)}
	require.NoError(t, backing.Save(ctx, "p1", sampleProfile(t)))

	cached, err := NewCachedStore(backing, 8)
	require.NoError(t, err)

	first, err := cached.Load(ctx, "p1")
	require.NoError(t, err)
	second, err := cached.Load(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, 1, backing.loads)
	assert.Equal(t, first, second)

	// Callers get their own copy.
	second.MainCondition.Secondary[0] = "mutated"
	third, err := cached.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Insônia", third.MainCondition.Secondary[0])
}

func TestCachedStoreSaveAndClear(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: openMemoryStore(t, nil)}
	cached, err := NewCachedStore(backing, 0)
	require.NoError(t, err)

	p := sampleProfile(t)
	require.NoError(t, cached.Save(ctx, "p1", p))
	assert.Equal(t, 0, cached.Len())

	got, err := cached.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, 1, cached.Len())

	replacement := sampleProfile(t)
	replacement.ID = "replacement"
	require.NoError(t, cached.Save(ctx, "p1", replacement))
	got, err = cached.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "replacement", got.ID)
	assert.Equal(t, 2, backing.loads)

	require.NoError(t, cached.Clear(ctx, "p1"))
	assert.Equal(t, 0, cached.Len())
	_, err = cached.Load(ctx, "p1")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

// gatedStore blocks its first Load after reading the backend until release
// is closed.
type gatedStore struct {
	Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(t *testing.T) *gatedStore {
	return &gatedStore{
		Store:   openMemoryStore(t, nil),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *gatedStore) Load(ctx context.Context, patientID string) (*PatientProfile, error) {
	p, err := s.Store.Load(ctx, patientID)
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return p, err
}

func TestCachedStoreInFlightLoadAfterWrite(t *testing.T) {
	tests := []struct {
		name   string
		write  func(ctx context.Context, cached *CachedStore) error
		wantID string
	}{
		{
			name: "clear",
			write: func(ctx context.Context, cached *CachedStore) error {
				return cached.Clear(ctx, "p1")
			},
		},
		{
			name: "save",
			write: func(ctx context.Context, cached *CachedStore) error {
				p := sampleProfile(t)
				p.ID = "new"
				return cached.Save(ctx, "p1", p)
			},
			wantID: "new",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backing := newGatedStore(t)
			old := sampleProfile(t)
			old.ID = "old"
			require.NoError(t, backing.Save(ctx, "p1", old))

			cached, err := NewCachedStore(backing, 8)
			require.NoError(t, err)

			done := make(chan struct{})
			go func() {
				defer close(done)
				p, err := cached.Load(ctx, "p1")
				assert.NoError(t, err)
				assert.Equal(t, "old", p.ID)
			}()

			<-backing.entered
			require.NoError(t, tt.write(ctx, cached))
			close(backing.release)
			<-done

			got, err := cached.Load(ctx, "p1")
			if tt.wantID == "" {
				assert.ErrorIs(t, err, ErrProfileNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	cached, err := NewCachedStore(openMemoryStore(t, nil), 4)
	require.NoError(t, err)

	_, err = cached.Load(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Equal(t, 0, cached.Len())
}
