package bme690

import (
	"fmt"
	"time"
)

// Self test parameters: forced measurements alternate between a high and
// a low heater target and the gas response is checked for plausibility.
const (
	selfTestMeasurements = 6
	selfTestHighTemp     = 350 // degrees Celsius
	selfTestLowTemp      = 150
	selfTestWarmupDur    = 1 * time.Second
	selfTestHeaterDur    = 2 * time.Second
)

// Plausibility bounds for an indoor power-on self test.
const (
	minTemperature = 0.0 // degrees Celsius
	maxTemperature = 60.0
	minPressure    = 90000.0 // Pascal
	maxPressure    = 110000.0
	minHumidity    = 20.0 // %RH
	maxHumidity    = 80.0
)

// SelfTest runs a sequence of forced measurements against plausibility
// bounds and fails with ErrSelfTest if the sensor responds outside them.
// The test reconfigures the sensor and resets it afterwards; any previous
// configuration and heater profile must be reapplied.
func (d *Device) SelfTest() error {
	conf := Config{
		Temperature: Sampling2X,
		Pressure:    Sampling16X,
		Humidity:    Sampling1X,
	}

	// Warm-up shot at the high target to verify the heater loop closes.
	warmup, err := d.forcedShot(conf, selfTestHighTemp, selfTestWarmupDur)
	if err != nil {
		return err
	}
	if !warmup.GasValid() {
		return fmt.Errorf("%w: no valid gas measurement after warm-up", ErrSelfTest)
	}

	var data [selfTestMeasurements]Data
	for i := range data {
		temp := uint16(selfTestLowTemp)
		if i%2 == 0 {
			temp = selfTestHighTemp
		}
		if data[i], err = d.forcedShot(conf, temp, selfTestHeaterDur); err != nil {
			return err
		}
	}

	if err := analyze(data[:]); err != nil {
		return err
	}

	return d.Reset()
}

// forcedShot arms one forced measurement with a single heater step and
// waits out the full cycle before reading the field back.
func (d *Device) forcedShot(conf Config, heaterTemp uint16, heaterDur time.Duration) (Data, error) {
	if err := d.SetConfig(conf); err != nil {
		return Data{}, err
	}
	profile := HeaterProfile{
		Steps:   []HeaterStep{{Temperature: heaterTemp, Duration: heaterDur}},
		Enabled: true,
	}
	if err := d.SetHeaterProfile(Forced, profile); err != nil {
		return Data{}, err
	}
	if err := d.SetMode(Forced); err != nil {
		return Data{}, err
	}

	d.wait(conf.MeasDuration(Forced) + heaterDur)

	var buf [1]Data
	if _, err := d.ReadFields(Forced, buf[:]); err != nil {
		return Data{}, fmt.Errorf("bme690: self test measurement failed: %w", err)
	}

	return buf[0], nil
}

func analyze(data []Data) error {
	for i, f := range data {
		if f.Temperature < minTemperature || f.Temperature > maxTemperature {
			return fmt.Errorf("%w: temperature %.2f out of bounds (measurement %d)",
				ErrSelfTest, f.Temperature, i)
		}
		if f.Pressure < minPressure || f.Pressure > maxPressure {
			return fmt.Errorf("%w: pressure %.1f out of bounds (measurement %d)",
				ErrSelfTest, f.Pressure, i)
		}
		if f.Humidity < minHumidity || f.Humidity > maxHumidity {
			return fmt.Errorf("%w: humidity %.2f out of bounds (measurement %d)",
				ErrSelfTest, f.Humidity, i)
		}
		if !f.GasValid() {
			return fmt.Errorf("%w: gas measurement %d not valid", ErrSelfTest, i)
		}
	}

	// The low-target measurements must read a clearly higher resistance
	// than the high-target one between them.
	centRes := 5 * (data[3].GasResistance + data[5].GasResistance) /
		(2 * data[4].GasResistance)
	if centRes < 6 {
		return fmt.Errorf("%w: gas resistance spread %.2f too low", ErrSelfTest, centRes)
	}

	return nil
}
