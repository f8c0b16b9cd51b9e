package bme690

import "fmt"

// Data is one decoded measurement field.
//
// GasIndex reports which heater profile step produced the gas reading. The
// sensor, not the driver, tracks the active step, so heater timing drift
// is already absorbed. MeasIndex counts measurements monotonically and
// wraps in a device defined range; it disambiguates multiple fields
// returned from one readout.
type Data struct {
	Temperature   float64 // degrees Celsius
	Pressure      float64 // Pascal
	Humidity      float64 // %RH
	GasResistance float64 // Ohm

	Status    byte
	GasIndex  uint8
	MeasIndex uint8

	// ResHeat and GasWait are the raw heater codes the step ran with.
	ResHeat byte
	GasWait byte
}

// HasNewData reports whether the field carries a fresh measurement.
func (f *Data) HasNewData() bool { return f.Status&NewData != 0 }

// GasValid reports whether the gas measurement completed.
func (f *Data) GasValid() bool { return f.Status&GasValid != 0 }

// HeatStable reports whether the heater reached its target temperature.
func (f *Data) HeatStable() bool { return f.Status&HeatStable != 0 }

// ReadFields reads the sensor data fields for the given operating mode
// into buf and returns the number of fields carrying new data.
//
// Forced mode fills at most one field, retrying a few times while the
// sensor is still integrating. Sequential and parallel modes decode all
// three field slots in one burst, sort them so that new fields come first
// in measurement order, and fill up to len(buf) of them. When no field is
// new the readout returns 0 and ErrNoNewData; this is expected while the
// current cycle has not elapsed and must not abort the polling loop.
// No partial fields are ever produced.
func (d *Device) ReadFields(mode Mode, buf []Data) (int, error) {
	if len(buf) == 0 {
		return 0, fmt.Errorf("%w: no room for data fields", ErrInvalidLength)
	}

	switch mode {
	case Forced:
		return d.readForced(buf)
	case Sequential, Parallel:
		return d.readAll(buf)
	}

	return 0, fmt.Errorf("bme690: cannot read fields in %v mode", mode)
}

func (d *Device) readForced(buf []Data) (int, error) {
	block := make([]byte, lenField)

	// The sensor needs a few extra polls right at the end of a cycle.
	for tries := 5; tries > 0; tries-- {
		if err := d.ReadBytes(RegField0, block); err != nil {
			return 0, fmt.Errorf("bme690: could not read data field: %w", err)
		}

		f := d.decodeField(block)
		if f.HasNewData() {
			var err error
			if f.ResHeat, err = d.Read(RegResHeat0 + f.GasIndex); err != nil {
				return 0, fmt.Errorf("bme690: could not read heater resistance: %w", err)
			}
			if f.GasWait, err = d.Read(RegGasWait0 + f.GasIndex); err != nil {
				return 0, fmt.Errorf("bme690: could not read heater wait: %w", err)
			}
			buf[0] = f
			return 1, nil
		}
		d.wait(periodPoll)
	}

	return 0, ErrNoNewData
}

func (d *Device) readAll(buf []Data) (int, error) {
	block := make([]byte, lenField*MaxFields)
	if err := d.ReadBytes(RegField0, block); err != nil {
		return 0, fmt.Errorf("bme690: could not read data fields: %w", err)
	}
	heater := make([]byte, lenInterims)
	if err := d.ReadBytes(RegResHeat0, heater); err != nil {
		return 0, fmt.Errorf("bme690: could not read heater tables: %w", err)
	}

	var fields [MaxFields]Data
	newFields := 0
	for i := range fields {
		fields[i] = d.decodeField(block[i*lenField : (i+1)*lenField])
		if idx := int(fields[i].GasIndex); idx < MaxProfileLen {
			fields[i].ResHeat = heater[idx]
			fields[i].GasWait = heater[MaxProfileLen+idx]
		}
		if fields[i].HasNewData() {
			newFields++
		}
	}
	if newFields == 0 {
		return 0, ErrNoNewData
	}

	sortFields(&fields)

	n := copy(buf, fields[:])
	if newFields < n {
		n = newFields
	}

	return n, nil
}

// decodeField unpacks one 17-byte field block. The raw ADC codes are run
// through the calibration compensation; pressure and humidity reuse the
// temperature fine value.
func (d *Device) decodeField(block []byte) Data {
	var f Data
	f.Status = block[0] & NewData
	f.GasIndex = block[0] & gasIndexMask
	f.MeasIndex = block[1]

	adcPres := uint32(block[2])<<12 | uint32(block[3])<<4 | uint32(block[4])>>4
	adcTemp := uint32(block[5])<<12 | uint32(block[6])<<4 | uint32(block[7])>>4
	adcHum := uint16(block[8])<<8 | uint16(block[9])

	var adcGas uint16
	var gasRange uint8
	if d.variantID == VariantGasHigh {
		adcGas = uint16(block[15])<<2 | uint16(block[16])>>6
		gasRange = block[16] & gasRangeMask
		f.Status |= block[16] & (GasValid | HeatStable)
	} else {
		adcGas = uint16(block[13])<<2 | uint16(block[14])>>6
		gasRange = block[14] & gasRangeMask
		f.Status |= block[14] & (GasValid | HeatStable)
	}

	var tFine float64
	f.Temperature, tFine = d.calib.compensateTemperature(adcTemp)
	f.Pressure = d.calib.compensatePressure(adcPres, tFine)
	f.Humidity = d.calib.compensateHumidity(adcHum, tFine)
	if d.variantID == VariantGasHigh {
		f.GasResistance = compensateGasHigh(adcGas, gasRange)
	} else {
		f.GasResistance = d.calib.compensateGasLow(adcGas, gasRange)
	}

	return f
}

// sortFields orders the three field slots so that fields with new data
// come first, in measurement index order. The index wraps, so a large
// positive difference means the smaller index is actually newer.
func sortFields(fields *[MaxFields]Data) {
	for i := 0; i < MaxFields-1; i++ {
		for j := i + 1; j < MaxFields; j++ {
			iNew, jNew := fields[i].HasNewData(), fields[j].HasNewData()
			diff := int(fields[j].MeasIndex) - int(fields[i].MeasIndex)
			if (iNew && jNew && (diff > -3 && diff < 0 || diff > 2)) ||
				(!iNew && jNew) {
				fields[i], fields[j] = fields[j], fields[i]
			}
		}
	}
}
