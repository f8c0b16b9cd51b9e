package bme690

import "fmt"

// calibration holds the factory trimmed compensation coefficients. They are
// read once at init and never change.
type calibration struct {
	t1 uint16
	t2 int16
	t3 int8

	p1         uint16
	p2, p4, p5 int16
	p3, p6, p7 int8
	p8, p9     int16
	p10        uint8

	h1, h2         uint16
	h3, h4, h5, h7 int8
	h6             uint8

	gh1, gh3     int8
	gh2          int16
	resHeatRange uint8
	resHeatVal   int8
	rangeSwErr   int8
}

// readCalibration reads the three coefficient blocks and parses them per
// the datasheet layout.
func (d *Device) readCalibration() error {
	var coeff [lenCoeff]byte

	if err := d.ReadBytes(RegCoeff1, coeff[:lenCoeff1]); err != nil {
		return fmt.Errorf("bme690: could not read coefficient block 1: %w", err)
	}
	if err := d.ReadBytes(RegCoeff2, coeff[lenCoeff1:lenCoeff1+lenCoeff2]); err != nil {
		return fmt.Errorf("bme690: could not read coefficient block 2: %w", err)
	}
	if err := d.ReadBytes(0x00, coeff[lenCoeff1+lenCoeff2:]); err != nil {
		return fmt.Errorf("bme690: could not read coefficient block 3: %w", err)
	}

	c := &d.calib
	c.t1 = uint16(coeff[31]) | uint16(coeff[32])<<8
	c.t2 = int16(uint16(coeff[0]) | uint16(coeff[1])<<8)
	c.t3 = int8(coeff[2])

	c.p1 = uint16(coeff[4]) | uint16(coeff[5])<<8
	c.p2 = int16(uint16(coeff[6]) | uint16(coeff[7])<<8)
	c.p3 = int8(coeff[8])
	c.p4 = int16(uint16(coeff[10]) | uint16(coeff[11])<<8)
	c.p5 = int16(uint16(coeff[12]) | uint16(coeff[13])<<8)
	c.p6 = int8(coeff[15])
	c.p7 = int8(coeff[14])
	c.p8 = int16(uint16(coeff[18]) | uint16(coeff[19])<<8)
	c.p9 = int16(uint16(coeff[20]) | uint16(coeff[21])<<8)
	c.p10 = coeff[22]

	c.h1 = uint16(coeff[25])<<4 | uint16(coeff[24])&0x0F
	c.h2 = uint16(coeff[23])<<4 | uint16(coeff[24])>>4
	c.h3 = int8(coeff[26])
	c.h4 = int8(coeff[27])
	c.h5 = int8(coeff[28])
	c.h6 = coeff[29]
	c.h7 = int8(coeff[30])

	c.gh1 = int8(coeff[35])
	c.gh2 = int16(uint16(coeff[33]) | uint16(coeff[34])<<8)
	c.gh3 = int8(coeff[36])
	c.resHeatVal = int8(coeff[37])
	c.resHeatRange = (coeff[39] & 0x30) >> 4
	c.rangeSwErr = int8(coeff[41]&0xF0) >> 4

	return nil
}

// compensateTemperature converts a raw 20-bit temperature reading to
// degrees Celsius. It also returns the fine resolution intermediate used
// by the pressure and humidity compensation.
func (c *calibration) compensateTemperature(raw uint32) (temp, tFine float64) {
	var1 := (float64(raw)/16384.0 - float64(c.t1)/1024.0) * float64(c.t2)
	var2 := float64(raw)/131072.0 - float64(c.t1)/8192.0
	var2 = var2 * var2 * float64(c.t3) * 16.0
	tFine = var1 + var2

	return tFine / 5120.0, tFine
}

// compensatePressure converts a raw 20-bit pressure reading to Pascal.
func (c *calibration) compensatePressure(raw uint32, tFine float64) float64 {
	var1 := tFine/2.0 - 64000.0
	var2 := var1 * var1 * (float64(c.p6) / 131072.0)
	var2 += var1 * float64(c.p5) * 2.0
	var2 = var2/4.0 + float64(c.p4)*65536.0
	var1 = (float64(c.p3)*var1*var1/16384.0 + float64(c.p2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(c.p1)
	press := 1048576.0 - float64(raw)

	// Avoid division by zero when p1 trims to nothing.
	if int(var1) == 0 {
		return 0
	}
	press = (press - var2/4096.0) * 6250.0 / var1
	var1 = float64(c.p9) * press * press / 2147483648.0
	var2 = press * (float64(c.p8) / 32768.0)
	var3 := (press / 256.0) * (press / 256.0) * (press / 256.0) * (float64(c.p10) / 131072.0)

	return press + (var1+var2+var3+float64(c.p7)*128.0)/16.0
}

// compensateHumidity converts a raw 16-bit humidity reading to %RH,
// clamped to [0, 100].
func (c *calibration) compensateHumidity(raw uint16, tFine float64) float64 {
	tempComp := tFine / 5120.0
	var1 := float64(raw) - (float64(c.h1)*16.0 + float64(c.h3)/2.0*tempComp)
	var2 := var1 * (float64(c.h2) / 262144.0 *
		(1.0 + float64(c.h4)/16384.0*tempComp +
			float64(c.h5)/1048576.0*tempComp*tempComp))
	var3 := float64(c.h6) / 16384.0
	var4 := float64(c.h7) / 2097152.0
	hum := var2 + (var3+var4*tempComp)*var2*var2

	if hum > 100.0 {
		hum = 100.0
	} else if hum < 0.0 {
		hum = 0.0
	}

	return hum
}

// compensateGasLow converts a raw gas resistance reading to Ohm for the
// low gas variant.
func (c *calibration) compensateGasLow(raw uint16, gasRange uint8) float64 {
	lookupK1 := [16]float64{0, 0, 0, 0, 0, -1, 0, -0.8, 0, 0, -0.2, -0.5, 0, -1, 0, 0}
	lookupK2 := [16]float64{0, 0, 0, 0, 0.1, 0.7, 0, -0.8, -0.1, 0, 0, 0, 0, 0, 0, 0}

	var1 := 1340.0 + 5.0*float64(c.rangeSwErr)
	var2 := var1 * (1.0 + lookupK1[gasRange]/100.0)
	var3 := 1.0 + lookupK2[gasRange]/100.0

	return 1.0 / (var3 * 0.000000125 * float64(uint32(1)<<gasRange) *
		((float64(raw)-512.0)/var2 + 1.0))
}

// compensateGasHigh converts a raw gas resistance reading to Ohm for the
// high gas variant.
func compensateGasHigh(raw uint16, gasRange uint8) float64 {
	var1 := uint32(262144) >> gasRange
	var2 := int32(raw) - 512
	var2 *= 3
	var2 += 4096

	return 1000000.0 * float64(var1) / float64(var2)
}

// resHeat encodes a heater target temperature in degrees Celsius into the
// device resistance code. Targets above 400 degrees clamp to 400. The
// encoding depends on the ambient temperature set on the device.
func (d *Device) resHeat(temp uint16) byte {
	if temp > 400 {
		temp = 400
	}
	c := &d.calib

	var1 := float64(c.gh1)/16.0 + 49.0
	var2 := float64(c.gh2)/32768.0*0.0005 + 0.00235
	var3 := float64(c.gh3) / 1024.0
	var4 := var1 * (1.0 + var2*float64(temp))
	var5 := var4 + var3*float64(d.ambTemp)

	return byte(3.4 * (var5*(4.0/(4.0+float64(c.resHeatRange)))*
		(1.0/(1.0+float64(c.resHeatVal)*0.002)) - 25.0))
}
