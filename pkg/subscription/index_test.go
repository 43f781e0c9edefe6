package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"StockPulse/pkg/model"
)

func fav(user, symbol string) model.Favorite {
	return model.Favorite{UserID: user, Symbol: symbol}
}

func TestBuildGroupsBySymbol(t *testing.T) {
	favorites := []model.Favorite{
		fav("u2", "AAPL"),
		fav("u1", "AAPL"),
		fav("u1", "MSFT"),
	}
	settings := []model.UserSetting{{UserID: "u1", NotificationThreshold: 3}}

	idx := Build(favorites, settings, 5)

	require.Equal(t, []string{"AAPL", "MSFT"}, idx.Symbols)
	require.Equal(t, 3, idx.Favorites)
	require.Equal(t, []model.Subscriber{
		{UserID: "u1", Threshold: 3},
		{UserID: "u2", Threshold: 5},
	}, idx.Groups["AAPL"])
	require.Equal(t, []model.Subscriber{{UserID: "u1", Threshold: 3}}, idx.Groups["MSFT"])
}

func TestBuildDefaultsMissingSettingToFive(t *testing.T) {
	idx := Build([]model.Favorite{fav("u1", "TSLA")}, nil, 5)
	require.Equal(t, 5.0, idx.Groups["TSLA"][0].Threshold)
}

func TestBuildNormalizesAndDeduplicates(t *testing.T) {
	favorites := []model.Favorite{
		fav("u1", " aapl "),
		fav("u1", "AAPL"),
		fav("u1", ""),
	}
	idx := Build(favorites, nil, 5)

	require.Equal(t, []string{"AAPL"}, idx.Symbols)
	require.Len(t, idx.Groups["AAPL"], 1)
}

func TestBuildClampsThreshold(t *testing.T) {
	settings := []model.UserSetting{
		{UserID: "neg", NotificationThreshold: -4},
		{UserID: "big", NotificationThreshold: 250},
	}
	idx := Build([]model.Favorite{fav("neg", "X"), fav("big", "X")}, settings, 5)

	require.Equal(t, []model.Subscriber{
		{UserID: "big", Threshold: 100},
		{UserID: "neg", Threshold: 0},
	}, idx.Groups["X"])
}

func TestBuildEmpty(t *testing.T) {
	idx := Build(nil, nil, 5)
	require.True(t, idx.Empty())
	require.Empty(t, idx.Symbols)
}

type stubLoader struct {
	favorites   []model.Favorite
	settings    []model.UserSetting
	favErr      error
	settingsErr error
	settingsHit bool
}

func (s *stubLoader) ListFavorites(context.Context) ([]model.Favorite, error) {
	return s.favorites, s.favErr
}

func (s *stubLoader) ListSettings(context.Context) ([]model.UserSetting, error) {
	s.settingsHit = true
	return s.settings, s.settingsErr
}

func TestLoadSkipsSettingsWhenNoFavorites(t *testing.T) {
	loader := &stubLoader{}
	idx, err := Load(context.Background(), loader, 5)
	require.NoError(t, err)
	require.True(t, idx.Empty())
	require.False(t, loader.settingsHit)
}

func TestLoadWrapsErrors(t *testing.T) {
	boom := errors.New("db down")

	_, err := Load(context.Background(), &stubLoader{favErr: boom}, 5)
	require.ErrorIs(t, err, boom)

	_, err = Load(context.Background(), &stubLoader{favorites: []model.Favorite{fav("u", "A")}, settingsErr: boom}, 5)
	require.ErrorIs(t, err, boom)
}
