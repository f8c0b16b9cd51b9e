// Package bme69x drives Bosch BME69x-family gas sensors through their
// multi-phase measurement cycle: every sample is preceded by a
// programmable heater plate ramp, and each decoded field is tagged with
// the heater profile step and measurement index that produced it.
//
// The package owns the acquisition protocol only: configuring the sensor,
// scheduling the heater profile, arming an operating mode, waiting out
// the cycle and correlating the returned fields. Register-level access
// lives in the chip package github.com/cgxeiji/bme69x/bme690.
//
// The protocol is single-threaded and synchronous: the waits between
// arming a mode and polling are mandatory blocking sleeps, not optional
// backoffs, because the underlying half-duplex bus allows one outstanding
// transaction and the sensor needs the full cycle to integrate. Sharing a
// Device between goroutines requires external locking around the whole
// configure-and-poll sequence.
package bme69x

import (
	"errors"
	"fmt"
	"time"

	"github.com/cgxeiji/bme69x/bme690"
)

var (
	// ErrWrongDevice is thrown when trying to convert a bme69x.Device to
	// an underlying chip type it does not wrap.
	ErrWrongDevice = errors.New("wrong device")
	// ErrWarmingUp is thrown when the gas measurement is not yet valid or
	// the heater has not stabilized, typically during the first cycles
	// after power-on.
	ErrWarmingUp = errors.New("gas sensor still warming up")
)

// DefaultRetryLimit bounds how many consecutive NoNewData polls Poll
// tolerates before giving up. The sensor does not specify an upper bound
// itself, so the ceiling is configurable with WithRetryLimit.
const DefaultRetryLimit = 5

// Device defines a BME69x-family device.
type Device struct {
	sensor sensor
	sleep  func(time.Duration)

	conf    bme690.Config
	profile bme690.HeaterProfile
	mode    bme690.Mode

	retryLimit int
	busName    string
	addr       uint16
	ambient    int

	baseline *gasBaseline
	humidity movingAverage

	// Variant is the gas sensing variant reported by the chip.
	Variant byte
}

type sensor interface {
	Config() (bme690.Config, error)
	SetConfig(bme690.Config) error
	SetHeaterProfile(bme690.Mode, bme690.HeaterProfile) error
	SetMode(bme690.Mode) error
	Mode() (bme690.Mode, error)
	ReadFields(bme690.Mode, []bme690.Data) (int, error)
	SetAmbientTemperature(int)
	SelfTest() error
	Variant() byte
	Close()
}

// New returns a new BME69x device found on an I2C bus.
func New(options ...Option) (*Device, error) {
	d := &Device{
		sleep:      time.Sleep,
		retryLimit: DefaultRetryLimit,
		ambient:    25,
		baseline:   newGasBaseline(64),
	}
	for _, opt := range options {
		opt(d)
	}

	sensor, err := bme690.New(d.busName, d.addr)
	if err != nil {
		return nil, err
	}
	sensor.SetAmbientTemperature(d.ambient)

	d.sensor = sensor
	d.Variant = sensor.Variant()

	return d, nil
}

// Close puts the sensor to sleep and closes the bus.
func (d *Device) Close() {
	d.sensor.Close()
}

// ApplyConfig writes the oversampling, filter and output-data-rate
// settings to the sensor. The sensor drops back to sleep; arm it again
// with SetMode. On failure the previously applied configuration remains
// the effective one and should be reapplied in full before continuing.
func (d *Device) ApplyConfig(c bme690.Config) error {
	if err := d.sensor.SetConfig(c); err != nil {
		return fmt.Errorf("bme69x: could not apply configuration: %w", err)
	}
	d.conf = c
	d.mode = bme690.Sleep

	return nil
}

// ApplyHeaterProfile validates and writes the heater profile table for
// the given operating mode. Profiles must have 1 to 10 steps. The sensor
// drops back to sleep; arm it again with SetMode.
func (d *Device) ApplyHeaterProfile(mode bme690.Mode, p bme690.HeaterProfile) error {
	if err := d.sensor.SetHeaterProfile(mode, p); err != nil {
		return fmt.Errorf("bme69x: could not apply heater profile: %w", err)
	}
	d.profile = p
	d.mode = bme690.Sleep

	return nil
}

// SetMode arms the sensor in the given operating mode. Arming an active
// mode starts the first measurement cycle immediately, so the first
// Advance or Poll should follow within the cycle duration.
func (d *Device) SetMode(m bme690.Mode) error {
	if err := d.sensor.SetMode(m); err != nil {
		return fmt.Errorf("bme69x: could not set mode: %w", err)
	}
	d.mode = m

	return nil
}

// Mode returns the currently armed operating mode.
func (d *Device) Mode() bme690.Mode {
	return d.mode
}

// CycleDuration estimates the wait before the next poll: the measurement
// duration for the applied configuration plus the heating time of the
// first profile step. Polling earlier than this risks reading no new
// data; polling later wastes cycle time but is safe.
func (d *Device) CycleDuration() time.Duration {
	mode := d.mode
	if mode == bme690.Sleep {
		mode = bme690.Sequential
	}
	wait := d.conf.MeasDuration(mode)

	if !d.profile.Enabled || len(d.profile.Steps) == 0 {
		return wait
	}
	if mode == bme690.Parallel {
		return wait + d.profile.SharedDuration
	}

	return wait + d.profile.Steps[0].Duration
}

// FullCycleDuration estimates the time one complete pass over the heater
// profile takes, measurement overhead included.
func (d *Device) FullCycleDuration() time.Duration {
	mode := d.mode
	if mode == bme690.Sleep {
		mode = bme690.Sequential
	}
	meas := d.conf.MeasDuration(mode)

	var total time.Duration
	for _, step := range d.profile.Steps {
		total += meas + step.Duration
	}

	return total
}

// Advance performs one step of the acquisition cycle: it blocks for the
// cycle duration, then reads the data fields once. It returns the fields
// carrying new data, or bme690.ErrNoNewData when the sensor has nothing
// fresh yet. NoNewData is a warning, not a failure: the caller re-polls
// after another cycle. Transport failures leave the cycle state unchanged
// so the same step can be retried.
func (d *Device) Advance() ([]bme690.Data, error) {
	d.sleep(d.CycleDuration())

	buf := make([]bme690.Data, bme690.MaxFields)
	n, err := d.sensor.ReadFields(d.mode, buf)
	if err != nil {
		return nil, err
	}

	return buf[:n], nil
}

// Poll advances the acquisition cycle until it yields data, retrying
// NoNewData up to the configured retry limit. Any other failure is
// returned immediately.
func (d *Device) Poll() ([]bme690.Data, error) {
	for try := 0; ; try++ {
		records, err := d.Advance()
		if errors.Is(err, bme690.ErrNoNewData) {
			if try >= d.retryLimit {
				return nil, fmt.Errorf("bme69x: %d polls without data: %w", try+1, err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("bme69x: could not poll: %w", err)
		}

		return records, nil
	}
}

// SelfTest runs the sensor's plausibility self test. The sensor is reset
// afterwards: configuration, heater profile and mode must be reapplied.
func (d *Device) SelfTest() error {
	if err := d.sensor.SelfTest(); err != nil {
		return err
	}
	d.conf = bme690.Config{}
	d.profile = bme690.HeaterProfile{}
	d.mode = bme690.Sleep

	return nil
}

// ToBME690 converts a bme69x device to a bme690 device to access low
// level functions. Check the package bme69x/bme690 for detailed behavior.
func (d *Device) ToBME690() (*bme690.Device, error) {
	device, ok := d.sensor.(*bme690.Device)
	if !ok {
		return nil, ErrWrongDevice
	}

	return device, nil
}
