package bme690

import (
	"fmt"
	"time"
)

// Config holds the measurement settings of the sensor. The zero value
// disables every measurement stage.
type Config struct {
	// Temperature, Pressure and Humidity select the oversampling per
	// channel. Off skips the channel.
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	// Filter selects the IIR filter applied to temperature and pressure.
	Filter FilterCoefficient
	// ODR selects the standby time between measurements in parallel mode.
	ODR OutputDataRate
}

// clamped bounds every setting to its largest valid register encoding.
func (c Config) clamped() Config {
	if c.Temperature > Sampling16X {
		c.Temperature = Sampling16X
	}
	if c.Pressure > Sampling16X {
		c.Pressure = Sampling16X
	}
	if c.Humidity > Sampling16X {
		c.Humidity = Sampling16X
	}
	if c.Filter > FilterCoeff127 {
		c.Filter = FilterCoeff127
	}
	if c.ODR > ODRNone {
		c.ODR = ODRNone
	}
	return c
}

// MeasDuration returns how long the sensor needs to integrate one TPH+gas
// measurement with this configuration. The caller must wait at least this
// long (plus the active heater step duration) before polling for data.
// The filter setting does not affect the duration.
func (c Config) MeasDuration(mode Mode) time.Duration {
	c = c.clamped()
	cycles := c.Temperature.cycles() + c.Pressure.cycles() + c.Humidity.cycles()

	dur := time.Duration(cycles) * cycleDuration
	dur += switchDuration
	dur += gasDuration
	if mode != Parallel {
		dur += wakeDuration
	}

	return dur
}

// SetConfig writes the measurement settings to the sensor. The sensor is
// put to sleep first; a new operating mode must be armed afterwards with
// SetMode. On failure the previously applied configuration stays the
// effective one from the driver's point of view, even though the physical
// registers may be inconsistent; callers should reapply the full
// configuration after any failure.
func (d *Device) SetConfig(c Config) error {
	c = c.clamped()

	if err := d.SetMode(Sleep); err != nil {
		return fmt.Errorf("bme690: could not enter sleep for configuration: %w", err)
	}

	// ctrl_gas_1 (0x71) up to config (0x75), modified in one batch.
	regs := []byte{RegCtrlGas1, RegCtrlHum, RegStatus, RegCtrlMeas, RegConfig}
	data := make([]byte, lenConfig)
	if err := d.ReadBytes(RegCtrlGas1, data); err != nil {
		return fmt.Errorf("bme690: could not read configuration: %w", err)
	}

	odr20, odr3 := byte(0), byte(1)
	if c.ODR != ODRNone {
		odr20, odr3 = byte(c.ODR), 0
	}

	data[1] = data[1]&^oshMask | byte(c.Humidity)&oshMask
	data[3] = data[3]&^ostMask | byte(c.Temperature)<<ostShift&ostMask
	data[3] = data[3]&^ospMask | byte(c.Pressure)<<ospShift&ospMask
	data[4] = data[4]&^filterMask | byte(c.Filter)<<filterShift&filterMask
	data[4] = data[4]&^odr20Mask | odr20<<odr20Shift&odr20Mask
	data[0] = data[0]&^odr3Mask | odr3<<odr3Shift&odr3Mask

	if err := d.WriteBytes(regs, data); err != nil {
		return fmt.Errorf("bme690: could not write configuration: %w", err)
	}
	d.conf = c

	return nil
}

// MeasDuration returns the measurement duration for the last applied
// configuration.
func (d *Device) MeasDuration(mode Mode) time.Duration {
	return d.conf.MeasDuration(mode)
}

// Config reads the measurement settings back from the sensor.
func (d *Device) Config() (Config, error) {
	data := make([]byte, lenConfig)
	if err := d.ReadBytes(RegCtrlGas1, data); err != nil {
		return Config{}, fmt.Errorf("bme690: could not read configuration: %w", err)
	}

	c := Config{
		Humidity:    Oversampling(data[1] & oshMask),
		Temperature: Oversampling(data[3] & ostMask >> ostShift),
		Pressure:    Oversampling(data[3] & ospMask >> ospShift),
		Filter:      FilterCoefficient(data[4] & filterMask >> filterShift),
		ODR:         OutputDataRate(data[4] & odr20Mask >> odr20Shift),
	}
	if data[0]&odr3Mask != 0 {
		c.ODR = ODRNone
	}

	return c, nil
}
