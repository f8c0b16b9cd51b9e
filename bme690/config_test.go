package bme690

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasDuration(t *testing.T) {
	// Reference sequential-mode setup: 2+1+16 = 19 ADC cycles.
	conf := Config{
		Temperature: Sampling2X,
		Pressure:    Sampling1X,
		Humidity:    Sampling16X,
	}

	want := 19*1963*time.Microsecond + // ADC cycles
		477*4*time.Microsecond + // TPH switching
		477*5*time.Microsecond + // gas measurement
		1000*time.Microsecond // wake-up

	assert.Equal(t, 42590*time.Microsecond, want)
	assert.Equal(t, want, conf.MeasDuration(Sequential))
	assert.Equal(t, want, conf.MeasDuration(Forced))
	// Parallel mode never sleeps, so there is no wake-up cost.
	assert.Equal(t, want-1000*time.Microsecond, conf.MeasDuration(Parallel))
}

func TestMeasDurationMonotonic(t *testing.T) {
	base := Config{
		Temperature: Sampling1X,
		Pressure:    Sampling1X,
		Humidity:    Sampling1X,
	}
	levels := []Oversampling{Off, Sampling1X, Sampling2X, Sampling4X, Sampling8X, Sampling16X}

	bump := map[string]func(*Config, Oversampling){
		"temperature": func(c *Config, o Oversampling) { c.Temperature = o },
		"pressure":    func(c *Config, o Oversampling) { c.Pressure = o },
		"humidity":    func(c *Config, o Oversampling) { c.Humidity = o },
	}
	for name, set := range bump {
		t.Run(name, func(t *testing.T) {
			prev := time.Duration(-1)
			for _, level := range levels {
				conf := base
				set(&conf, level)
				dur := conf.MeasDuration(Sequential)
				assert.Greater(t, dur, prev, "oversampling %d", level)
				prev = dur
			}
		})
	}
}

func TestMeasDurationFilterIndependent(t *testing.T) {
	conf := Config{
		Temperature: Sampling2X,
		Pressure:    Sampling1X,
		Humidity:    Sampling16X,
	}
	want := conf.MeasDuration(Sequential)

	for _, f := range []FilterCoefficient{FilterOff, FilterCoeff3, FilterCoeff127} {
		conf.Filter = f
		assert.Equal(t, want, conf.MeasDuration(Sequential))
	}
}

func TestSetConfig(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	conf := Config{
		Temperature: Sampling2X,
		Pressure:    Sampling1X,
		Humidity:    Sampling16X,
		Filter:      FilterOff,
		ODR:         ODRNone,
	}
	require.NoError(t, d.SetConfig(conf))

	assert.Equal(t, byte(Sampling16X), chip.regs[RegCtrlHum]&oshMask)
	assert.Equal(t, byte(Sampling2X)<<ostShift, chip.regs[RegCtrlMeas]&ostMask)
	assert.Equal(t, byte(Sampling1X)<<ospShift, chip.regs[RegCtrlMeas]&ospMask)
	assert.Zero(t, chip.regs[RegConfig]&filterMask)
	assert.NotZero(t, chip.regs[RegCtrlGas1]&odr3Mask, "ODRNone sets the odr3 bit")

	got, err := d.Config()
	require.NoError(t, err)
	assert.Equal(t, conf, got)
}

func TestSetConfigIdempotent(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	conf := Config{
		Temperature: Sampling8X,
		Pressure:    Sampling4X,
		Humidity:    Sampling2X,
		Filter:      FilterCoeff7,
		ODR:         ODR250ms,
	}

	chip.writes = nil
	require.NoError(t, d.SetConfig(conf))
	first := append([][]byte(nil), chip.writes...)

	chip.writes = nil
	require.NoError(t, d.SetConfig(conf))
	second := chip.writes

	assert.Equal(t, first, second, "same config must produce identical register writes")
}

func TestSetConfigComFail(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	applied := Config{Temperature: Sampling1X, Humidity: Sampling1X, ODR: ODRNone}
	require.NoError(t, d.SetConfig(applied))

	chip.failWrite = errors.New("i2c: device NAK")
	err := d.SetConfig(Config{Temperature: Sampling16X, ODR: ODRNone})
	assert.ErrorIs(t, err, ErrComm)

	// The previously applied configuration stays the effective snapshot.
	assert.Equal(t, applied, d.conf)
}

func TestSetConfigClamps(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	require.NoError(t, d.SetConfig(Config{
		Temperature: Oversampling(0x0F),
		Filter:      FilterCoefficient(0xFF),
		ODR:         ODRNone,
	}))

	assert.Equal(t, byte(Sampling16X)<<ostShift, chip.regs[RegCtrlMeas]&ostMask)
	assert.Equal(t, byte(FilterCoeff127)<<filterShift, chip.regs[RegConfig]&filterMask)
}
