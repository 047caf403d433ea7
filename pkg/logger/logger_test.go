package logger

import (
	"testing"

	"commudev_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLevel(t *testing.T) {
	SetLevel(&config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "warn"}})
	assert.Equal(t, zap.WarnLevel, Level())

	SetLevel(&config.Config{Server: config.ServerConfig{Mode: "debug"}, Log: config.LogConfig{Level: "warn"}})
	assert.Equal(t, zap.DebugLevel, Level())

	SetLevel(&config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "bogus"}})
	assert.Equal(t, zap.InfoLevel, Level())
}
