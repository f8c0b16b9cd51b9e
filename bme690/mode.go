package bme690

import "fmt"

// Mode returns the current operating mode of the sensor.
func (d *Device) Mode() (Mode, error) {
	reg, err := d.Read(RegCtrlMeas)
	if err != nil {
		return Sleep, fmt.Errorf("bme690: could not read operating mode: %w", err)
	}

	return Mode(reg & modeMask), nil
}

// SetMode switches the sensor into the given operating mode. The sensor
// only accepts a new active mode from sleep, so the current mode is spun
// down first, waiting for the device state machine to settle between
// writes. Arming Forced, Parallel or Sequential mode starts the
// measurement cycle immediately.
func (d *Device) SetMode(m Mode) error {
	var reg byte
	for {
		var err error
		if reg, err = d.Read(RegCtrlMeas); err != nil {
			return fmt.Errorf("bme690: could not read operating mode: %w", err)
		}
		if Mode(reg&modeMask) == Sleep {
			break
		}
		if err := d.Write(RegCtrlMeas, reg&^modeMask); err != nil {
			return fmt.Errorf("bme690: could not enter sleep: %w", err)
		}
		d.wait(periodPoll)
	}

	if m != Sleep {
		if err := d.Write(RegCtrlMeas, reg&^modeMask|byte(m)&modeMask); err != nil {
			return fmt.Errorf("bme690: could not set mode %v: %w", m, err)
		}
	}

	return nil
}
