package logging

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		cfg  config.LoggingConfig
		want zapcore.Level
	}{
		{config.LoggingConfig{Level: "debug"}, zapcore.DebugLevel},
		{config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{config.LoggingConfig{Level: "loud"}, zapcore.InfoLevel},
		{config.LoggingConfig{}, zapcore.InfoLevel},
	}
	for _, c := range cases {
		log, err := New(c.cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", c.cfg, err)
		}
		if !log.Core().Enabled(c.want) || (c.want > zapcore.DebugLevel && log.Core().Enabled(c.want-1)) {
			t.Errorf("New(%+v) does not log at exactly %v", c.cfg, c.want)
		}
	}
}
