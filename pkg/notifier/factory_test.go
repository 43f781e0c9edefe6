package notifier

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockPulse/pkg/config"
)

func TestNewPusherSelectsOneSignal(t *testing.T) {
	cfg := config.Default()
	cfg.Push.AppID = "app"
	cfg.Push.APIKey = "key"

	p, err := NewPusher(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &OneSignalPusher{}, p)
}

func TestNewPusherRejectsUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.Push.Provider = "sms"
	_, err := NewPusher(context.Background(), cfg)
	require.Error(t, err)
}

func TestLogPusher(t *testing.T) {
	res, err := NewLogPusher(zaptest.NewLogger(t)).Send(context.Background(), PushMessage{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.ID, "dry-run-"))
}
