package bme690

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(n int) HeaterProfile {
	p := HeaterProfile{Enabled: true}
	for i := 0; i < n; i++ {
		p.Steps = append(p.Steps, HeaterStep{
			Temperature: uint16(200 + 20*i),
			Duration:    100 * time.Millisecond,
		})
	}
	return p
}

func TestSetHeaterProfileLength(t *testing.T) {
	d, _ := newTestDevice(t, VariantGasHigh)

	for n := 1; n <= MaxProfileLen; n++ {
		assert.NoError(t, d.SetHeaterProfile(Sequential, testProfile(n)), "%d steps", n)
	}

	assert.ErrorIs(t, d.SetHeaterProfile(Sequential, testProfile(0)), ErrInvalidLength)
	assert.ErrorIs(t, d.SetHeaterProfile(Sequential, testProfile(MaxProfileLen+1)), ErrInvalidLength)

	// A rejected profile leaves the previously applied one effective.
	assert.Len(t, d.HeaterProfile().Steps, MaxProfileLen)
}

func TestSetHeaterProfileSequential(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	p := testProfile(3)
	require.NoError(t, d.SetHeaterProfile(Sequential, p))

	for i, step := range p.Steps {
		assert.Equal(t, d.resHeat(step.Temperature), chip.regs[int(RegResHeat0)+i], "res_heat_%d", i)
		assert.Equal(t, gasWait(step.Duration), chip.regs[int(RegGasWait0)+i], "gas_wait_%d", i)
	}

	assert.Equal(t, byte(3), chip.regs[RegCtrlGas1]&nbConvMask)
	// High gas variant runs the sequencer with run_gas = 2.
	assert.Equal(t, byte(2)<<runGasShift, chip.regs[RegCtrlGas1]&runGasMask)
	assert.Zero(t, chip.regs[RegCtrlGas0]&heatOffMask)
}

func TestSetHeaterProfileLowVariant(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasLow)

	require.NoError(t, d.SetHeaterProfile(Sequential, testProfile(2)))
	assert.Equal(t, byte(1)<<runGasShift, chip.regs[RegCtrlGas1]&runGasMask)
}

func TestSetHeaterProfileDisabled(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	p := testProfile(2)
	p.Enabled = false
	require.NoError(t, d.SetHeaterProfile(Sequential, p))

	assert.NotZero(t, chip.regs[RegCtrlGas0]&heatOffMask, "heater current off")
	assert.Zero(t, chip.regs[RegCtrlGas1]&runGasMask, "gas conversions off")
}

func TestSetHeaterProfileForced(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	p := testProfile(1)
	p.Steps[0].Temperature = 320
	p.Steps[0].Duration = time.Second
	require.NoError(t, d.SetHeaterProfile(Forced, p))

	assert.Equal(t, d.resHeat(320), chip.regs[RegResHeat0])
	assert.Equal(t, gasWait(time.Second), chip.regs[RegGasWait0])
	assert.Zero(t, chip.regs[RegCtrlGas1]&nbConvMask, "forced mode always runs step 0")
}

func TestSetHeaterProfileParallel(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	p := testProfile(2)
	p.SharedDuration = 100 * time.Millisecond
	p.Steps[0].Duration = 200 * time.Millisecond // 2x the shared duration
	p.Steps[1].Duration = 300 * time.Millisecond

	require.NoError(t, d.SetHeaterProfile(Parallel, p))
	assert.Equal(t, byte(2), chip.regs[RegGasWait0], "wait codes are multipliers")
	assert.Equal(t, byte(3), chip.regs[int(RegGasWait0)+1])
	assert.Equal(t, gasWaitShared(p.SharedDuration), chip.regs[RegSharedDur])

	p.SharedDuration = 0
	assert.Error(t, d.SetHeaterProfile(Parallel, p))
}

func TestSetHeaterProfileNeedsActiveMode(t *testing.T) {
	d, _ := newTestDevice(t, VariantGasHigh)

	assert.Error(t, d.SetHeaterProfile(Sleep, testProfile(1)))
}

func TestGasWait(t *testing.T) {
	cases := []struct {
		dur  time.Duration
		want byte
	}{
		{0, 0x00},
		{63 * time.Millisecond, 0x3F},
		{64 * time.Millisecond, 0x50},  // 16ms mantissa, x4
		{100 * time.Millisecond, 0x59}, // 25ms mantissa, x4
		{500 * time.Millisecond, 0x9F}, // 31ms mantissa, x16
		{4032 * time.Millisecond, 0xFF},
		{time.Minute, 0xFF},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, gasWait(c.dur), "gasWait(%v)", c.dur)
	}
}

func TestGasWaitShared(t *testing.T) {
	// 100ms = 209 ticks of 477us: mantissa 52, x4.
	assert.Equal(t, byte(52+1<<6), gasWaitShared(100*time.Millisecond))
	assert.Equal(t, byte(0xFF), gasWaitShared(2*time.Second))
}

func TestResHeatClamp(t *testing.T) {
	d, _ := newTestDevice(t, VariantGasHigh)

	assert.Equal(t, d.resHeat(400), d.resHeat(500), "targets clamp at 400C")
}

func TestResHeatAmbient(t *testing.T) {
	d, _ := newTestDevice(t, VariantGasHigh)

	// With zeroed gh3 trim the ambient temperature has no effect; the
	// encoding must still be deterministic.
	code := d.resHeat(300)
	d.SetAmbientTemperature(25)
	assert.Equal(t, code, d.resHeat(300))
}
