// Command bme69x samples a BME690 in sequential mode and prints one CSV
// line per decoded field. An optional YAML settings file can override the
// bus, the measurement settings and the heater profile:
//
//	bme69x [settings.yaml]
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cgxeiji/bme69x"
	"github.com/cgxeiji/bme69x/bme690"
)

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := loadSettings(path)
	if err != nil {
		log.Fatal(err)
	}

	conf, err := cfg.deviceConfig()
	if err != nil {
		log.Fatal(err)
	}

	sensor, err := bme69x.New(
		bme69x.OnBus(cfg.Bus),
		bme69x.OnAddr(cfg.Addr),
		bme69x.WithAmbientTemperature(cfg.AmbientTemperature),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer sensor.Close()

	switch sensor.Variant {
	case bme690.VariantGasHigh:
		fmt.Println("BME69x detected (high gas variant)")
	default:
		fmt.Println("BME69x detected (low gas variant)")
	}

	if err := sensor.ApplyConfig(conf); err != nil {
		log.Fatal(err)
	}
	if err := sensor.ApplyHeaterProfile(bme690.Sequential, cfg.heaterProfile()); err != nil {
		log.Fatal(err)
	}
	if err := sensor.SetMode(bme690.Sequential); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Sample, TimeStamp(ms), Temperature(deg C), Pressure(Pa), " +
		"Humidity(%), Gas resistance(ohm), Status, Profile index, Measurement index")

	start := time.Now()
	for count := 1; count <= cfg.Samples; {
		records, err := sensor.Poll()
		if errors.Is(err, bme690.ErrNoNewData) {
			log.Printf("warning: %v", err)
			continue
		}
		if err != nil {
			log.Fatal(err)
		}

		for _, r := range records {
			fmt.Printf("%d, %d, %.2f, %.2f, %.2f, %.2f, %#x, %d, %d\n",
				count,
				time.Since(start).Milliseconds(),
				r.Temperature,
				r.Pressure,
				r.Humidity,
				r.GasResistance,
				r.Status,
				r.GasIndex,
				r.MeasIndex,
			)
			count++
		}
	}
}
