package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dezash123/drone/internal/blackbox"
	"github.com/dezash123/drone/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quadsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: DEBUG
  duration: 3s
flight:
  estimator:
    kind: kalman
  calibration:
    samples: 200
sensor:
  gyroBias: [1, -1, 0.5]
script:
  - at: 2s
    dropout: true
  - at: 500ms
    throttle: 0.7
    mode: 1
    aux: 0.9
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.Settings.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Settings.Duration)
	assert.Equal(t, config.EstimatorKalman, cfg.Flight.Estimator.Kind)
	assert.Equal(t, 200, cfg.Flight.Calibration.Samples)
	assert.Equal(t, [3]float64{1, -1, 0.5}, cfg.Sensor.GyroBias)

	// untouched sections keep their defaults
	assert.Equal(t, config.Default().Motors, cfg.Flight.Motors)
	assert.Equal(t, 500, cfg.Flight.Loop.ControlHz)

	// script is ordered by time
	require.Len(t, cfg.Script, 2)
	assert.Equal(t, 500*time.Millisecond, cfg.Script[0].At)
	assert.Equal(t, uint8(1), cfg.Script[0].Mode)
	assert.True(t, cfg.Script[1].Dropout)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "settings:\n  speed: 3\n",
		"bad duration":   "settings:\n  duration: soon\n",
		"zero duration":  "settings:\n  duration: 0s\n",
		"invalid flight": "flight:\n  loop:\n    controlHz: 0\n",
		"unknown mode":   "flight:\n  modes:\n    map:\n      3: cruise\n",
		"weak airframe":  "airframe:\n  thrustToWeight: 0.8\n",
		"negative step":  "script:\n  - at: -1s\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_RecordsBlackbox(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Duration = time.Second
	cfg.Flight.Calibration.Samples = 50
	cfg.Blackbox.Path = filepath.Join(t.TempDir(), "flight.db")
	cfg.Script = []Step{{Throttle: 0.75, Mode: 1, Aux: 0.9}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Run(context.Background(), &cfg, logger))

	store := blackbox.NewSqliteStore(cfg.Blackbox.Path)
	defer store.Close()

	frames, err := store.Frames(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, frames, 500)
	assert.Equal(t, "hover", frames[len(frames)-1].Mode)

	sess, err := store.Session(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vehicleName, sess.Vehicle)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Duration = time.Hour
	cfg.Settings.Realtime = true
	cfg.Flight.Calibration.Samples = 10

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.NoError(t, Run(ctx, &cfg, logger))
}
