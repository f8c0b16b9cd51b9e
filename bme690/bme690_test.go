package bme690

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simChip emulates enough of the sensor's register file to exercise the
// driver: auto-incrementing burst reads, interleaved pair writes, soft
// reset and the operating mode handshake.
type simChip struct {
	regs   [256]byte
	writes [][]byte // raw write payloads, in order

	failRead  map[byte]error
	failWrite error

	// onFieldRead runs after every burst read of the data field block,
	// so tests can emulate the sequencer advancing.
	onFieldRead func(c *simChip)
}

func newSimChip(variant byte) *simChip {
	c := &simChip{failRead: map[byte]error{}}
	c.regs[RegChipID] = ChipID
	c.regs[RegVariantID] = variant
	return c
}

func (c *simChip) Tx(w, r []byte) error {
	if len(r) == 0 {
		if c.failWrite != nil {
			return c.failWrite
		}
		c.writes = append(c.writes, append([]byte(nil), w...))
		for i := 0; i+1 < len(w); i += 2 {
			c.set(w[i], w[i+1])
		}
		return nil
	}

	reg := w[0]
	if err := c.failRead[reg]; err != nil {
		return err
	}
	copy(r, c.regs[int(reg):])
	if reg == RegField0 && c.onFieldRead != nil {
		c.onFieldRead(c)
	}
	return nil
}

func (c *simChip) set(reg, val byte) {
	if reg == RegSoftReset {
		if val == softResetCmd {
			for _, cfg := range []byte{RegCtrlGas0, RegCtrlGas1, RegCtrlHum, RegCtrlMeas, RegConfig} {
				c.regs[cfg] = 0
			}
		}
		return
	}
	c.regs[int(reg)] = val
}

// setField stores a data field block in slot i.
func (c *simChip) setField(i int, block [lenField]byte) {
	copy(c.regs[int(RegField0)+i*lenField:], block[:])
}

// fieldBlock builds a field block with the given status and indices. The
// ADC codes stay zero. Status bits are placed for both gas variants.
func fieldBlock(gasIndex, measIndex byte, newData, gasValid, heatStable bool) [lenField]byte {
	var b [lenField]byte
	if newData {
		b[0] = NewData
	}
	b[0] |= gasIndex & gasIndexMask
	b[1] = measIndex

	var status byte
	if gasValid {
		status |= GasValid
	}
	if heatStable {
		status |= HeatStable
	}
	b[14] |= status
	b[16] |= status

	return b
}

func newTestDevice(t *testing.T, variant byte) (*Device, *simChip) {
	t.Helper()

	chip := newSimChip(variant)
	d, err := Wrap(chip)
	require.NoError(t, err)
	d.wait = func(time.Duration) {}

	return d, chip
}

func TestWrap(t *testing.T) {
	d, _ := newTestDevice(t, VariantGasHigh)

	assert.Equal(t, byte(VariantGasHigh), d.Variant())

	mode, err := d.Mode()
	require.NoError(t, err)
	assert.Equal(t, Sleep, mode)
}

func TestWrapWrongChip(t *testing.T) {
	chip := newSimChip(VariantGasHigh)
	chip.regs[RegChipID] = 0x55

	_, err := Wrap(chip)
	assert.ErrorIs(t, err, ErrNotDevice)
}

func TestWrapComFail(t *testing.T) {
	chip := newSimChip(VariantGasHigh)
	chip.failRead[RegChipID] = errors.New("i2c: bus arbitration lost")

	_, err := Wrap(chip)
	assert.ErrorIs(t, err, ErrComm)
}

func TestClosedDevice(t *testing.T) {
	d, _ := newTestDevice(t, VariantGasHigh)
	d.Close()

	_, err := d.Read(RegChipID)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.Write(RegCtrlHum, 1), ErrClosed)
}

func TestSetMode(t *testing.T) {
	d, chip := newTestDevice(t, VariantGasHigh)

	// Some oversampling bits are already set; they must survive the
	// mode handshake.
	chip.regs[RegCtrlMeas] = 0x44 | byte(Forced)

	require.NoError(t, d.SetMode(Sequential))
	assert.Equal(t, byte(0x44)|byte(Sequential), chip.regs[RegCtrlMeas])

	mode, err := d.Mode()
	require.NoError(t, err)
	assert.Equal(t, Sequential, mode)

	require.NoError(t, d.SetMode(Sleep))
	assert.Equal(t, byte(0x44), chip.regs[RegCtrlMeas])
}
