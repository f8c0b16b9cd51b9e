// Package bme690 controls a Bosch BME690 gas sensor over I2C.
//
// The sensor measures temperature, pressure, humidity and gas resistance.
// Each gas measurement is preceded by a heater phase driven by a
// programmable heater profile. This package exposes the raw device
// operations: configuration, heater profile setup, operating mode control
// and data field readout. The parent package github.com/cgxeiji/bme69x
// wraps it with the measurement cycle orchestration.
package bme690

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

var (
	// ErrNotDevice throws an error when the device chip ID does not match a
	// BME690 signature (0x61).
	ErrNotDevice = errors.New("bme690: chip ID does not match (0x61)")
	// ErrComm is wrapped around any failed bus transaction. The transaction
	// is never retried internally; the caller decides whether to repeat the
	// whole operation.
	ErrComm = errors.New("bme690: communication failure")
	// ErrInvalidLength is thrown when a read or write does not match the
	// expected register block size, or a heater profile is empty or longer
	// than MaxProfileLen steps.
	ErrInvalidLength = errors.New("bme690: invalid length")
	// ErrNoNewData reports that a data field readout found no new sample.
	// It is a warning: expected while the sensor is still integrating, and
	// must not abort a polling loop.
	ErrNoNewData = errors.New("bme690: no new data")
	// ErrSelfTest is thrown when the power-on self test measurements fall
	// outside plausible bounds.
	ErrSelfTest = errors.New("bme690: self test failed")
	// ErrClosed is thrown when operating on a device that was never opened
	// or has been closed.
	ErrClosed = errors.New("bme690: device not open")
)

// Conn is a half-duplex register transaction: w is written, then r is
// filled. periph.io's i2c.Dev satisfies it. Reads auto-increment the
// register address; multi-register writes must be interleaved
// (register, value) pairs in a single transaction.
type Conn interface {
	Tx(w, r []byte) error
}

// Device defines a BME690 device.
type Device struct {
	conn Conn
	bus  i2c.BusCloser
	wait func(time.Duration)

	variantID byte
	calib     calibration
	ambTemp   int8

	conf   Config
	heater HeaterProfile
}

// New returns a new BME690 device found on an I2C bus.
//
// Argument "busName" can be used to specify the exact bus to use
// ("/dev/i2c-2", "I2C2", "2"). If "busName" is an empty string, the first
// available bus is used. Argument "addr" can be used to specify an
// alternative address if the default (0x76) is unavailable; 0 selects the
// default.
func New(busName string, addr uint16) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bme690: could not initialize host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("bme690: could not open I2C bus: %w", err)
	}

	if addr == 0 {
		addr = Addr
	}

	d, err := Wrap(&i2c.Dev{Addr: addr, Bus: bus})
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.bus = bus

	return d, nil
}

// Wrap initializes a BME690 behind an already open register connection.
// It soft resets the sensor, checks the chip ID, probes the gas variant
// and reads the calibration coefficients.
func Wrap(c Conn) (*Device, error) {
	d := &Device{
		conn:    c,
		wait:    time.Sleep,
		ambTemp: 25,
	}

	if err := d.Reset(); err != nil {
		return nil, err
	}

	id, err := d.Read(RegChipID)
	if err != nil {
		return nil, fmt.Errorf("bme690: could not get chip ID: %w", err)
	}
	if id != ChipID {
		return nil, ErrNotDevice
	}

	if d.variantID, err = d.Read(RegVariantID); err != nil {
		return nil, fmt.Errorf("bme690: could not get variant ID: %w", err)
	}

	if err := d.readCalibration(); err != nil {
		return nil, err
	}

	return d, nil
}

// Close puts the device to sleep and closes the bus if this device opened
// it.
func (d *Device) Close() {
	if d == nil || d.conn == nil {
		return
	}
	d.SetMode(Sleep)
	if d.bus != nil {
		d.bus.Close()
	}
	d.conn = nil
}

// Variant returns the gas sensing variant ID of the device.
func (d *Device) Variant() byte {
	return d.variantID
}

// SetAmbientTemperature sets the ambient temperature in degrees Celsius
// used to encode heater target temperatures. The default is 25.
func (d *Device) SetAmbientTemperature(t int) {
	if t > 127 {
		t = 127
	}
	if t < -128 {
		t = -128
	}
	d.ambTemp = int8(t)
}

// Reset soft resets the device. All configuration registers return to
// their power-on state.
func (d *Device) Reset() error {
	if err := d.Write(RegSoftReset, softResetCmd); err != nil {
		return fmt.Errorf("bme690: could not reset: %w", err)
	}
	d.wait(periodReset)
	d.conf = Config{}
	d.heater = HeaterProfile{}

	return nil
}

// Read reads a single byte from a register.
func (d *Device) Read(reg byte) (byte, error) {
	b := make([]byte, 1)
	if err := d.ReadBytes(reg, b); err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadBytes fills b from consecutive registers starting at reg.
func (d *Device) ReadBytes(reg byte, b []byte) error {
	if d == nil || d.conn == nil {
		return ErrClosed
	}
	if len(b) == 0 {
		return fmt.Errorf("%w: zero-length read from %#x", ErrInvalidLength, reg)
	}
	if err := d.conn.Tx([]byte{reg}, b); err != nil {
		return fmt.Errorf("%w: read %d bytes from %#x: %v", ErrComm, len(b), reg, err)
	}

	return nil
}

// Write writes a byte to a register.
func (d *Device) Write(reg, data byte) error {
	return d.WriteBytes([]byte{reg}, []byte{data})
}

// WriteBytes writes data[i] to regs[i] in a single bus transaction. The
// sensor does not auto-increment on write, so the payload is interleaved
// (register, value) pairs.
func (d *Device) WriteBytes(regs, data []byte) error {
	if d == nil || d.conn == nil {
		return ErrClosed
	}
	if len(regs) == 0 || len(regs) != len(data) {
		return fmt.Errorf("%w: %d registers, %d values", ErrInvalidLength, len(regs), len(data))
	}
	w := make([]byte, 0, len(regs)*2)
	for i, reg := range regs {
		w = append(w, reg, data[i])
	}
	if err := d.conn.Tx(w, nil); err != nil {
		return fmt.Errorf("%w: write %d registers at %#x: %v", ErrComm, len(regs), regs[0], err)
	}

	return nil
}
