package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dental-screen/internal/domain/entity"
)

func TestMemoryChatRepository(t *testing.T) {
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	s, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, s.State)

	// Изменения копии не видны до Save.
	s.SetState(entity.StateAwaitingXray)
	fresh, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, fresh.State)

	require.NoError(t, repo.Save(ctx, s))
	fresh, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingXray, fresh.State)

	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateProcessing))
	fresh, err = repo.Get(ctx, 1, 11)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, fresh.State)
	require.Equal(t, int64(11), fresh.ChatID)
}

func TestMemoryChatRepository_SwapState(t *testing.T) {
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	prev, err := repo.SwapState(ctx, 7, 70, entity.StateProcessing)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, prev)

	prev, err = repo.SwapState(ctx, 7, 70, entity.StateProcessing)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, prev)

	s, err := repo.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, s.State)
}
