package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *SQLiteStore, email string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, PasswordHash: "hash", Name: "Ana", IsActive: true}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := createUser(t, store, "ana@clinica.pe")
	require.NotZero(t, u.ID)

	got, err := store.UserByEmail(ctx, "ana@clinica.pe")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash", got.PasswordHash)
	require.True(t, got.IsActive)

	got, err = store.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana", got.Name)

	missing, err := store.UserByEmail(ctx, "nadie@clinica.pe")
	require.NoError(t, err)
	require.Nil(t, missing)

	err = store.CreateUser(ctx, &entity.User{Email: "ana@clinica.pe", PasswordHash: "x"})
	require.True(t, errors.Is(err, port.ErrAlreadyExists))
}

func TestSQLiteStore_PerUserIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ana := createUser(t, store, "ana@clinica.pe")
	luis := createUser(t, store, "luis@clinica.pe")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &entity.HistoryRecord{UserID: ana.ID, ImageFilename: "pano.png", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.SaveAnalysis(ctx, rec))
		require.Equal(t, i+1, rec.PerUserIndex)
	}

	other := &entity.HistoryRecord{UserID: luis.ID, CariesCount: 2, TotalDetections: 2}
	require.NoError(t, store.SaveAnalysis(ctx, other))
	require.Equal(t, 1, other.PerUserIndex)

	list, err := store.ListAnalyses(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []int{3, 2, 1}, []int{list[0].PerUserIndex, list[1].PerUserIndex, list[2].PerUserIndex})
	require.True(t, list[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	require.Empty(t, list[0].ImageBase64)

	list, err = store.ListAnalyses(ctx, luis.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, list[0].CariesCount)
}

func TestSQLiteStore_DeleteAnalysisChecksOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ana := createUser(t, store, "ana@clinica.pe")
	luis := createUser(t, store, "luis@clinica.pe")

	rec := &entity.HistoryRecord{UserID: ana.ID}
	require.NoError(t, store.SaveAnalysis(ctx, rec))

	ok, err := store.DeleteAnalysis(ctx, luis.ID, rec.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.DeleteAnalysis(ctx, ana.ID, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.DeleteAnalysis(ctx, ana.ID, rec.ID)
	require.NoError(t, err)
	require.False(t, ok)

	list, err := store.ListAnalyses(ctx, ana.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}
