package bme69x

import (
	"fmt"

	"github.com/cgxeiji/bme69x/bme690"
)

const optimalHumidity = 40.0 // %RH

// gasBaseline tracks the recent ceiling of gas resistance readings over a
// sliding window. Clean air reads the highest resistance, so the running
// maximum serves as the clean-air baseline.
type gasBaseline struct {
	buffer []float64
	idx    int
	n      int

	max float64
}

func newGasBaseline(size int) *gasBaseline {
	return &gasBaseline{
		buffer: make([]float64, size),
	}
}

func (g *gasBaseline) add(v float64) {
	g.idx++
	g.idx %= len(g.buffer)
	if g.n < len(g.buffer) {
		g.n++
	}

	old := g.buffer[g.idx]
	g.buffer[g.idx] = v

	if old == g.max {
		g.max = v
		for _, b := range g.buffer[:g.n] {
			if b > g.max {
				g.max = b
			}
		}
	} else if v > g.max {
		g.max = v
	}
}

// movingAverage stores an estimated moving average of the last 4 values.
type movingAverage struct {
	mean float64
}

func (m *movingAverage) add(n float64) {
	m.mean += (n - m.mean) / 4
}

// AirQuality polls the sensor once and returns a relative air quality
// score from 0 (poor) to 100 (clean), derived from the gas resistance
// against its recent clean-air baseline and the deviation of humidity
// from 40%RH. The score is relative to what the sensor has seen: it needs
// a number of cycles after power-on before the baseline settles. Records
// without a stable, valid gas measurement return ErrWarmingUp.
func (d *Device) AirQuality() (float64, error) {
	records, err := d.Poll()
	if err != nil {
		return 0, fmt.Errorf("bme69x: could not read air quality: %w", err)
	}

	var field *bme690.Data
	for i := range records {
		if records[i].GasValid() && records[i].HeatStable() {
			field = &records[i]
			break
		}
	}
	if field == nil {
		return 0, fmt.Errorf("bme69x: could not read air quality: %w", ErrWarmingUp)
	}

	d.baseline.add(field.GasResistance)
	d.humidity.add(field.Humidity)

	gasScore := field.GasResistance / d.baseline.max
	if gasScore > 1 {
		gasScore = 1
	}

	offset := d.humidity.mean - optimalHumidity
	if offset < 0 {
		offset = -offset
	}
	humScore := 1 - offset/optimalHumidity
	if humScore < 0 {
		humScore = 0
	}

	return (0.75*gasScore + 0.25*humScore) * 100, nil
}
