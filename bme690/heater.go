package bme690

import (
	"fmt"
	"time"
)

// HeaterStep is one phase of a heater profile: the plate heats towards
// Temperature and holds for Duration before the gas measurement fires.
type HeaterStep struct {
	Temperature uint16 // target in degrees Celsius, clamped to 400
	Duration    time.Duration
}

// HeaterProfile drives the gas sensing hot plate across a measurement
// cycle. Sequential mode walks the steps cyclically, one step per
// measurement; forced mode uses only the first step; parallel mode heats
// every step for a multiple of SharedDuration.
type HeaterProfile struct {
	Steps   []HeaterStep
	Enabled bool

	// SharedDuration is the common heating period in parallel mode. Each
	// step's Duration is encoded as a multiple of it. Ignored in forced
	// and sequential modes.
	SharedDuration time.Duration
}

// gasWait encodes a heating duration into the device wait code: a 6-bit
// mantissa with a x1/x4/x16/x64 multiplier. Durations of 4032ms or more
// saturate the code.
func gasWait(dur time.Duration) byte {
	ms := dur.Milliseconds()
	if ms >= 0xFC0 {
		return 0xFF
	}

	var factor byte
	for ms > 0x3F {
		ms /= 4
		factor++
	}

	return byte(ms) + factor<<6
}

// gasWaitShared encodes the parallel-mode shared heating duration, which
// uses a 477us time base instead of milliseconds.
func gasWaitShared(dur time.Duration) byte {
	ms := dur.Milliseconds()
	if ms >= 0x783 {
		return 0xFF
	}

	ticks := ms * 1000 / 477
	var factor byte
	for ticks > 0x3F {
		ticks >>= 2
		factor++
	}

	return byte(ticks) + factor<<6
}

// SetHeaterProfile validates the profile, encodes each step into the
// device resistance and wait codes and writes the whole table in one
// batch, then enables or disables the gas conversions for the given
// operating mode. The sensor is put to sleep first. Profiles with no
// steps or more than MaxProfileLen steps fail with ErrInvalidLength and
// leave the previously applied profile effective.
func (d *Device) SetHeaterProfile(mode Mode, p HeaterProfile) error {
	if len(p.Steps) == 0 || len(p.Steps) > MaxProfileLen {
		return fmt.Errorf("%w: heater profile of %d steps, want 1 to %d",
			ErrInvalidLength, len(p.Steps), MaxProfileLen)
	}

	if err := d.SetMode(Sleep); err != nil {
		return fmt.Errorf("bme690: could not enter sleep for heater setup: %w", err)
	}

	var (
		resRegs, resData []byte
		gwRegs, gwData   []byte
		nbConv           uint8
	)
	switch mode {
	case Forced:
		resRegs = []byte{RegResHeat0}
		resData = []byte{d.resHeat(p.Steps[0].Temperature)}
		gwRegs = []byte{RegGasWait0}
		gwData = []byte{gasWait(p.Steps[0].Duration)}
		nbConv = 0

	case Sequential:
		for i, step := range p.Steps {
			resRegs = append(resRegs, RegResHeat0+byte(i))
			resData = append(resData, d.resHeat(step.Temperature))
			gwRegs = append(gwRegs, RegGasWait0+byte(i))
			gwData = append(gwData, gasWait(step.Duration))
		}
		nbConv = uint8(len(p.Steps))

	case Parallel:
		if p.SharedDuration <= 0 {
			return fmt.Errorf("bme690: parallel mode needs a shared heater duration")
		}
		for i, step := range p.Steps {
			mult := step.Duration / p.SharedDuration
			if mult > 0xFF {
				mult = 0xFF
			}
			resRegs = append(resRegs, RegResHeat0+byte(i))
			resData = append(resData, d.resHeat(step.Temperature))
			gwRegs = append(gwRegs, RegGasWait0+byte(i))
			gwData = append(gwData, byte(mult))
		}
		resRegs = append(resRegs, RegSharedDur)
		resData = append(resData, gasWaitShared(p.SharedDuration))
		nbConv = uint8(len(p.Steps))

	default:
		return fmt.Errorf("bme690: heater profiles need an active mode, got %v", mode)
	}

	if err := d.WriteBytes(resRegs, resData); err != nil {
		return fmt.Errorf("bme690: could not write heater resistance table: %w", err)
	}
	if err := d.WriteBytes(gwRegs, gwData); err != nil {
		return fmt.Errorf("bme690: could not write heater wait table: %w", err)
	}

	if err := d.setGasControl(p.Enabled, nbConv); err != nil {
		return err
	}

	d.heater = HeaterProfile{
		Steps:          append([]HeaterStep(nil), p.Steps...),
		Enabled:        p.Enabled,
		SharedDuration: p.SharedDuration,
	}

	return nil
}

// HeaterProfile returns the last successfully applied heater profile.
func (d *Device) HeaterProfile() HeaterProfile {
	return HeaterProfile{
		Steps:          append([]HeaterStep(nil), d.heater.Steps...),
		Enabled:        d.heater.Enabled,
		SharedDuration: d.heater.SharedDuration,
	}
}

// setGasControl points the sequencer at the profile table and switches
// the heater current and gas conversions on or off.
func (d *Device) setGasControl(enable bool, nbConv uint8) error {
	ctrl := make([]byte, 2)
	if err := d.ReadBytes(RegCtrlGas0, ctrl); err != nil {
		return fmt.Errorf("bme690: could not read gas control: %w", err)
	}

	var heatOff, runGas byte
	if enable {
		heatOff = 0
		runGas = 1
		if d.variantID == VariantGasHigh {
			runGas = 2
		}
	} else {
		heatOff = 1
		runGas = 0
	}

	ctrl[0] = ctrl[0]&^heatOffMask | heatOff<<heatOffShift&heatOffMask
	ctrl[1] = ctrl[1]&^nbConvMask | nbConv&nbConvMask
	ctrl[1] = ctrl[1]&^runGasMask | runGas<<runGasShift&runGasMask

	if err := d.WriteBytes([]byte{RegCtrlGas0, RegCtrlGas1}, ctrl); err != nil {
		return fmt.Errorf("bme690: could not write gas control: %w", err)
	}

	return nil
}
