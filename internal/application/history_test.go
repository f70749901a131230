package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"dental-screen/internal/domain/entity"
)

func TestHistoryService_ListUsesDisplayZone(t *testing.T) {
	store := newStore(t)
	user := newUser(t, store, "doctora@clinica.pe")
	ctx := context.Background()

	older := &entity.HistoryRecord{
		UserID:          user.ID,
		ImageFilename:   "a.png",
		ModelUsed:       "best.pt",
		TotalDetections: 3,
		CariesCount:     2,
		BoneLossCount:   1,
		TeethFDIJSON:    `{"Caries":[11,36],"Perdida_Osea":[41]}`,
		ImageBase64:     "cG5n",
		CreatedAt:       time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC),
	}
	newer := &entity.HistoryRecord{
		UserID:    user.ID,
		CreatedAt: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveAnalysis(ctx, older))
	require.NoError(t, store.SaveAnalysis(ctx, newer))

	svc := NewHistoryService(store, -5, zerolog.Nop())
	items, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, 2, items[0].ID)
	require.Nil(t, items[0].ImageBase64)
	require.Empty(t, items[0].TeethFDI)

	it := items[1]
	require.Equal(t, 1, it.ID)
	require.Equal(t, 1, it.PerUserIndex)
	require.Equal(t, older.ID, it.AnalysisID)
	require.Equal(t, "2024-02-29T21:30:00-05:00", it.CreatedAt)
	require.Equal(t, "29/02/2024, 21:30:00", it.CreatedAtDisplay)
	require.Equal(t, 3, it.Total)
	require.Equal(t, 2, it.Caries)
	require.Equal(t, 1, it.Perdida)
	require.Equal(t, 1, it.Osea)
	require.Zero(t, it.Retenido)
	require.Equal(t, []int{11, 36}, it.TeethFDI[entity.FindingCaries])
	require.Equal(t, "cG5n", *it.ImageBase64)
}

func TestHistoryService_Delete(t *testing.T) {
	store := newStore(t)
	owner := newUser(t, store, "doctora@clinica.pe")
	other := newUser(t, store, "colega@clinica.pe")
	ctx := context.Background()

	rec := &entity.HistoryRecord{UserID: owner.ID}
	require.NoError(t, store.SaveAnalysis(ctx, rec))

	svc := NewHistoryService(store, 0, zerolog.Nop())
	require.ErrorIs(t, svc.Delete(ctx, other.ID, rec.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner.ID, rec.ID))
	require.ErrorIs(t, svc.Delete(ctx, owner.ID, rec.ID), ErrNotFound)

	items, err := svc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}
