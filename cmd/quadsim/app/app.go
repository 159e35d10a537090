package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dezash123/drone/internal/blackbox"
	"github.com/dezash123/drone/internal/flight"
	"github.com/dezash123/drone/internal/imu"
	"github.com/dezash123/drone/internal/radio"
	"github.com/dezash123/drone/internal/radio/serialrx"
	"github.com/dezash123/drone/internal/sim"
)

const (
	vehicleName    = "quadsim"
	reportInterval = time.Second
)

// Run flies the simulated quad for the configured duration or until ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	setup := sim.Setup{
		Params: config.Airframe,
		Sensor: []sim.SensorOption{
			sim.WithGyroBias(imu.Vector3(config.Sensor.GyroBias)),
			sim.WithNoise(config.Sensor.Noise, config.Sensor.Seed),
		},
		Flight: []func(f *flight.FlightSystem){flight.WithLogger(logger)},
	}

	if config.Radio.SerialPort != "" {
		var src *serialrx.Source
		if src, err = serialrx.Open(config.Radio.SerialPort, config.Flight.Radio.Protocol); err != nil {
			return fmt.Errorf("failed to open receiver: %w", err)
		}
		defer closeWithError(src, &err)

		var parser radio.FrameParser
		if parser, err = radio.NewParser(config.Flight.Radio.Protocol); err != nil {
			return err
		}
		setup.Radio = radio.NewReceiver(src, parser)
		logger.Info("flying from serial receiver", "port", config.Radio.SerialPort)
	}

	if config.Blackbox.Path != "" {
		store := blackbox.NewSqliteStore(config.Blackbox.Path)
		defer closeWithError(store, &err)

		var sessionID int64
		if sessionID, err = store.CreateSession(ctx, vehicleName, config.Flight); err != nil {
			return fmt.Errorf("failed to create blackbox session: %w", err)
		}

		recorder := blackbox.NewRecorder(store, sessionID,
			blackbox.WithLogger(logger),
			blackbox.WithQueueSize(config.Blackbox.QueueSize),
			blackbox.WithBatchSize(config.Blackbox.BatchSize),
		)
		// closed before the store
		defer func() {
			closeWithError(recorder, &err)
			if size, sErr := store.Size(); sErr == nil {
				logger.Info("blackbox written", "path", config.Blackbox.Path, "size", humanize.Bytes(uint64(size)))
			}
		}()
		setup.Flight = append(setup.Flight, flight.WithObserver(recorder))
	}

	h, err := sim.NewHarness(config.Flight, setup)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	if err = h.Boot(ctx); err != nil {
		return fmt.Errorf("failed to boot flight system: %w", err)
	}

	return fly(ctx, h, config, logger)
}

func fly(ctx context.Context, h *sim.Harness, config *Config, logger *slog.Logger) error {
	var tick <-chan time.Time
	if config.Settings.Realtime {
		ticker := time.NewTicker(h.StepDuration())
		defer ticker.Stop()
		tick = ticker.C
	}

	script := config.Script
	nextReport := time.Duration(0)
	for h.Elapsed() < config.Settings.Duration {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		for len(script) > 0 && script[0].At <= h.Elapsed() {
			apply(h, script[0])
			logger.Debug("script step", "at", script[0].At)
			script = script[1:]
		}

		h.Step()

		if h.Elapsed() >= nextReport {
			report(h, logger)
			nextReport += reportInterval
		}
	}

	report(h, logger)
	return nil
}

func apply(h *sim.Harness, s Step) {
	h.Transmitter.Set(radio.PilotCommand{
		X:          s.Roll,
		Y:          s.Pitch,
		Z:          s.Throttle,
		Twist:      s.Yaw,
		ModeSelect: s.Mode,
		Aux:        s.Aux,
	})
	h.Transmitter.SetDropout(s.Dropout)
	if s.Gust != [3]float64{} {
		h.Quad.Disturb(s.Gust[0], s.Gust[1], s.Gust[2])
	}
}

func report(h *sim.Harness, logger *slog.Logger) {
	s := h.System.State()
	a := h.Quad.Attitude()
	alt, climb := h.Quad.Altitude()
	logger.Info("flight",
		"t", h.Elapsed(),
		"mode", s.Mode,
		"altitude", fmt.Sprintf("%.2fm", alt),
		"climb", fmt.Sprintf("%.2fm/s", climb),
		"roll", fmt.Sprintf("%.1f", a.Roll),
		"pitch", fmt.Sprintf("%.1f", a.Pitch),
		"estRoll", fmt.Sprintf("%.1f", s.TrueAngle.Roll),
		"estPitch", fmt.Sprintf("%.1f", s.TrueAngle.Pitch),
		"failedRadio", s.FailedRadio,
	)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
