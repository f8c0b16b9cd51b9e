package bme690

import "time"

// Register addresses
const (
	RegMeasStatus0 = 0x1D
	RegField0      = 0x1D
	RegIdacHeat0   = 0x50
	RegResHeat0    = 0x5A
	RegGasWait0    = 0x64
	RegSharedDur   = 0x6E
	RegCtrlGas0    = 0x70
	RegCtrlGas1    = 0x71
	RegCtrlHum     = 0x72
	RegStatus      = 0x73
	RegCtrlMeas    = 0x74
	RegConfig      = 0x75
	RegUniqueID    = 0x83
	RegCoeff1      = 0x8A
	RegChipID      = 0xD0
	RegSoftReset   = 0xE0
	RegCoeff2      = 0xE1
	RegVariantID   = 0xF0
)

// Device constants
const (
	Addr     = 0x76 // default I2C address, 0x77 when SDO is pulled high
	AddrHigh = 0x77
	ChipID   = 0x61

	softResetCmd = 0xB6
)

// Gas sensing variants, read from RegVariantID. The high variant uses a
// different gas resistance conversion.
const (
	VariantGasLow  = 0x00
	VariantGasHigh = 0x01
)

// Coefficient block and field block sizes.
const (
	lenCoeff1 = 23
	lenCoeff2 = 14
	lenCoeff3 = 5
	lenCoeff  = lenCoeff1 + lenCoeff2 + lenCoeff3

	lenField    = 17
	lenConfig   = 5
	lenInterims = 20 // res_heat_x + gas_wait_x readback

	// MaxFields is the number of data fields the sensor exposes at once.
	// Parallel and sequential modes cycle through all three.
	MaxFields = 3

	// MaxProfileLen is the longest heater profile the sensor accepts.
	MaxProfileLen = 10
)

// Mode is the operating mode of the sensor.
type Mode byte

// Operating modes. The sensor always passes through Sleep when switching
// between active modes.
const (
	Sleep      Mode = 0x00
	Forced     Mode = 0x01
	Parallel   Mode = 0x02
	Sequential Mode = 0x03
)

func (m Mode) String() string {
	switch m {
	case Sleep:
		return "sleep"
	case Forced:
		return "forced"
	case Parallel:
		return "parallel"
	case Sequential:
		return "sequential"
	}
	return "unknown"
}

// Oversampling selects how many samples the ADC integrates per measurement.
// Off skips the measurement entirely and disables its compensation stage.
type Oversampling byte

// Oversampling settings.
const (
	Off Oversampling = iota
	Sampling1X
	Sampling2X
	Sampling4X
	Sampling8X
	Sampling16X
)

// cycles returns the number of ADC cycles the setting costs, as specified
// for the measurement duration formula.
func (o Oversampling) cycles() uint32 {
	table := [...]uint32{0, 1, 2, 4, 8, 16}
	if int(o) >= len(table) {
		return table[len(table)-1]
	}
	return table[o]
}

// FilterCoefficient selects the IIR filter applied to temperature and
// pressure. Higher coefficients smooth harder but react slower. The filter
// does not change the measurement duration.
type FilterCoefficient byte

// IIR filter coefficients.
const (
	FilterOff FilterCoefficient = iota
	FilterCoeff1
	FilterCoeff3
	FilterCoeff7
	FilterCoeff15
	FilterCoeff31
	FilterCoeff63
	FilterCoeff127
)

// OutputDataRate selects the standby time between measurements in
// parallel mode. ODRNone disables the standby timer.
type OutputDataRate byte

// Output data rates.
const (
	ODR0_59ms OutputDataRate = iota
	ODR62_5ms
	ODR125ms
	ODR250ms
	ODR500ms
	ODR1000ms
	ODR10ms
	ODR20ms
	ODRNone
)

// Status bits attached to each data field.
const (
	NewData     byte = 0x80
	GasMeasured byte = 0x40
	Measuring   byte = 0x20

	GasValid   byte = 0x20
	HeatStable byte = 0x10
)

// Field block masks.
const (
	gasIndexMask byte = 0x0F
	gasRangeMask byte = 0x0F
)

// Register masks.
const (
	modeMask byte = 0x03

	oshMask    byte = 0x07
	ostMask    byte = 0xE0
	ospMask    byte = 0x1C
	filterMask byte = 0x1C
	odr20Mask  byte = 0xE0
	odr3Mask   byte = 0x80

	nbConvMask  byte = 0x0F
	runGasMask  byte = 0x30
	heatOffMask byte = 0x08
)

// Bit positions for the masks above.
const (
	ostShift     = 5
	ospShift     = 2
	filterShift  = 2
	odr20Shift   = 5
	odr3Shift    = 7
	runGasShift  = 4
	heatOffShift = 3
)

// Timing.
const (
	periodPoll  = 10 * time.Millisecond
	periodReset = 10 * time.Millisecond

	// Measurement duration formula constants: microseconds per ADC cycle,
	// TPH switching overhead, gas measurement overhead and wake-up time.
	cycleDuration  = 1963 * time.Microsecond
	switchDuration = 477 * 4 * time.Microsecond
	gasDuration    = 477 * 5 * time.Microsecond
	wakeDuration   = 1000 * time.Microsecond
)
