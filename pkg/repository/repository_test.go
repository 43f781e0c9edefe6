package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StockPulse/pkg/model"
)

func TestCountByUserBetweenIsHalfOpen(t *testing.T) {
	repo := NewRepository()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	repo.SeedNotification("u1", "AAPL", start)
	repo.SeedNotification("u1", "MSFT", end.Add(-time.Nanosecond))
	repo.SeedNotification("u1", "TSLA", end)
	repo.SeedNotification("u2", "AAPL", start.Add(-time.Second))

	counts, err := repo.CountByUserBetween(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"u1": 2}, counts)
}

func TestCreateNotificationFillsDefaults(t *testing.T) {
	repo := NewRepository()
	rec := &model.NotificationRecord{UserID: "u1", Symbol: "AAPL"}
	require.NoError(t, repo.CreateNotification(context.Background(), rec))
	require.NotEmpty(t, rec.ID)
	require.False(t, rec.CreatedAt.IsZero())
	require.Len(t, repo.Notifications(), 1)
}

func TestInjectedFailures(t *testing.T) {
	repo := NewRepository()
	boom := errors.New("boom")
	repo.FailFavorites(boom)
	repo.FailCreates(boom)

	_, err := repo.ListFavorites(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, repo.CreateNotification(context.Background(), &model.NotificationRecord{}), boom)
	require.Empty(t, repo.Notifications())
}

func TestRecentNotificationsNewestFirst(t *testing.T) {
	repo := NewRepository()
	base := time.Now().UTC()
	repo.SeedNotification("u1", "AAPL", base.Add(-2*time.Hour))
	repo.SeedNotification("u1", "MSFT", base.Add(-time.Hour))
	repo.SeedNotification("u2", "TSLA", base)

	recs, err := repo.RecentNotifications(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "MSFT", recs[0].Symbol)
}
