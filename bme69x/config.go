package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cgxeiji/bme69x/bme690"
)

// settings is the optional YAML settings file for the demo. Every field
// has a default matching the reference sequential-mode setup.
type settings struct {
	Bus                string `yaml:"bus"`
	Addr               uint16 `yaml:"addr"`
	AmbientTemperature int    `yaml:"ambient_temperature"`
	Samples            int    `yaml:"samples"`

	Oversampling struct {
		Temperature int `yaml:"temperature"`
		Pressure    int `yaml:"pressure"`
		Humidity    int `yaml:"humidity"`
	} `yaml:"oversampling"`

	Profile []profileStep `yaml:"profile"`
}

type profileStep struct {
	Temperature uint16 `yaml:"temperature"`
	DurationMS  uint16 `yaml:"duration_ms"`
}

func defaultSettings() settings {
	var s settings
	s.AmbientTemperature = 25
	s.Samples = 300
	s.Oversampling.Temperature = 2
	s.Oversampling.Pressure = 1
	s.Oversampling.Humidity = 16

	for _, t := range []uint16{200, 240, 280, 320, 360, 360, 320, 280, 240, 200} {
		s.Profile = append(s.Profile, profileStep{Temperature: t, DurationMS: 100})
	}

	return s
}

func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("could not read settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("could not parse settings: %w", err)
	}
	if len(s.Profile) == 0 || len(s.Profile) > bme690.MaxProfileLen {
		return s, fmt.Errorf("profile needs 1 to %d steps, got %d",
			bme690.MaxProfileLen, len(s.Profile))
	}

	return s, nil
}

func oversampling(n int) (bme690.Oversampling, error) {
	switch n {
	case 0:
		return bme690.Off, nil
	case 1:
		return bme690.Sampling1X, nil
	case 2:
		return bme690.Sampling2X, nil
	case 4:
		return bme690.Sampling4X, nil
	case 8:
		return bme690.Sampling8X, nil
	case 16:
		return bme690.Sampling16X, nil
	}

	return bme690.Off, fmt.Errorf("invalid oversampling %d, want 0, 1, 2, 4, 8 or 16", n)
}

func (s settings) deviceConfig() (bme690.Config, error) {
	var c bme690.Config
	var err error

	if c.Temperature, err = oversampling(s.Oversampling.Temperature); err != nil {
		return c, err
	}
	if c.Pressure, err = oversampling(s.Oversampling.Pressure); err != nil {
		return c, err
	}
	if c.Humidity, err = oversampling(s.Oversampling.Humidity); err != nil {
		return c, err
	}
	c.Filter = bme690.FilterOff
	c.ODR = bme690.ODRNone

	return c, nil
}

func (s settings) heaterProfile() bme690.HeaterProfile {
	p := bme690.HeaterProfile{Enabled: true}
	for _, step := range s.Profile {
		p.Steps = append(p.Steps, bme690.HeaterStep{
			Temperature: step.Temperature,
			Duration:    time.Duration(step.DurationMS) * time.Millisecond,
		})
	}

	return p
}
