//go:build tinygo

// Command quadfc is the flight controller firmware for an RP2040 quadcopter board with an
// LSM6DS3TR IMU, a serial radio receiver and four ESCs.
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/control"
	"github.com/dezash123/drone/internal/flight"
	"github.com/dezash123/drone/internal/imu/lsm6ds3tr"
	"github.com/dezash123/drone/internal/radio"
	"github.com/dezash123/drone/internal/status"
)

const Version = "0.2.0"

// --- Hardware Mappings ---
var (
	rxUART = machine.UART1
	rxTX   = machine.GPIO4
	rxRX   = machine.GPIO5

	imuBus = machine.I2C0
	imuSDA = machine.GPIO24
	imuSCL = machine.GPIO25

	// front left, front right, back right, back left
	motorPins = [control.Motors]machine.Pin{machine.GPIO0, machine.GPIO2, machine.GPIO20, machine.GPIO22}
	motorPWMs = [control.Motors]pwmGroup{machine.PWM0, machine.PWM1, machine.PWM2, machine.PWM3}

	statusPin = machine.LED
)

const (
	// 400 Hz ESC frame: a full scale duty of 0xFFFF is 2.5 ms, so 0x6666..0xCCCC is 1..2 ms.
	escPeriodNs = 1e9 / 400

	watchdogTimeoutMs = 500

	// RP2040 UART receive ring buffer size
	uartBufferSize = 128
)

type pwmGroup interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// clock counts microseconds since boot.
type clock struct {
	start time.Time
}

func (c clock) Ticks() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// uartSource reads the receiver UART without blocking.
type uartSource struct {
	uart *machine.UART
}

func (u uartSource) ReadByte() (byte, error) {
	n := u.uart.Buffered()
	if n == 0 {
		return 0, radio.ErrNoNewData
	}
	if n >= uartBufferSize {
		// the ring buffer filled up and bytes were lost
		for u.uart.Buffered() > 0 {
			_, _ = u.uart.ReadByte()
		}
		return 0, radio.ErrHardwareOverrun
	}
	return u.uart.ReadByte()
}

// escs drives the four ESC outputs.
type escs struct {
	pwm [control.Motors]pwmGroup
	ch  [control.Motors]uint8
}

func (e *escs) SetDuty(channel int, duty uint16) {
	if channel < 0 || channel >= control.Motors {
		return
	}
	p := e.pwm[channel]
	p.Set(e.ch[channel], uint32(uint64(duty)*uint64(p.Top())/0xFFFF))
}

func main() {
	time.Sleep(2 * time.Second)
	println("quadfc - Version", Version)

	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelInfo}))
	clk := clock{start: time.Now()}
	cfg := config.Default()

	statusPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := status.NewLED(statusPin, clk)

	motors, err := setupESCs()
	if err != nil {
		halt(led, "could not configure ESC PWM", err)
	}
	for i := 0; i < control.Motors; i++ {
		motors.SetDuty(i, cfg.Motors.MinThrottle)
	}
	logger.Info("PWM configured for ESCs")

	baud := uint32(radio.IBusBaudRate)
	if cfg.Radio.Protocol == radio.ProtocolCRSF || cfg.Radio.Protocol == radio.ProtocolELRS {
		baud = radio.CRSFBaudRate
	}
	if err = rxUART.Configure(machine.UARTConfig{BaudRate: baud, TX: rxTX, RX: rxRX}); err != nil {
		halt(led, "could not configure receiver UART", err)
	}
	parser, err := radio.NewParser(cfg.Radio.Protocol)
	if err != nil {
		halt(led, "unknown receiver protocol", err)
	}
	rx := radio.NewReceiver(uartSource{uart: rxUART}, parser)
	logger.Info("UART configured for receiver input", "protocol", cfg.Radio.Protocol, "baud", baud)

	if err = imuBus.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz, SDA: imuSDA, SCL: imuSCL}); err != nil {
		halt(led, "could not configure I2C", err)
	}
	sensor, err := lsm6ds3tr.New(imuBus, clk)
	if err != nil {
		halt(led, "IMU setup failed", err)
	}
	logger.Info("LSM6DS3TR initialized")

	// Let the ESCs arm at zero throttle
	time.Sleep(2 * time.Second)

	watchdog := machine.Watchdog
	fs, err := flight.New(cfg, sensor, rx, motors, clk,
		flight.WithLogger(logger),
		flight.WithObserver(led),
		flight.WithObserver(flight.ObserverFunc(func(flight.Frame) { watchdog.Update() })),
	)
	if err != nil {
		halt(led, "invalid configuration", err)
	}

	led.SetPattern(status.LEDAlternate)
	if err = fs.Boot(context.Background()); err != nil {
		halt(led, "boot failed", err)
	}

	watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: watchdogTimeoutMs})
	watchdog.Start()

	// Never returns: the firmware has no shutdown path
	_ = fs.Run(context.Background())
}

func setupESCs() (*escs, error) {
	var e escs
	for i, pin := range motorPins {
		p := motorPWMs[i]
		if err := p.Configure(machine.PWMConfig{Period: escPeriodNs}); err != nil {
			return nil, err
		}
		ch, err := p.Channel(pin)
		if err != nil {
			return nil, err
		}
		e.pwm[i], e.ch[i] = p, ch
	}
	return &e, nil
}

// halt blinks the status LED forever, printing the error every second.
func halt(led *status.LED, msg string, err error) {
	led.SetPattern(status.LEDFastFlash)
	last := time.Now()
	for {
		led.Update()
		if time.Since(last) >= time.Second {
			println(msg+":", err.Error())
			last = time.Now()
		}
		time.Sleep(10 * time.Millisecond)
	}
}
