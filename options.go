package bme69x

// An Option configures a device.
type Option func(d *Device) Option

// OnBus can be used to specify the I²C bus name
// ("/dev/i2c-2", "I2C2", "2"). By default, the bus name is "", which
// selects the first available bus.
func OnBus(name string) Option {
	return func(d *Device) Option {
		old := d.busName
		d.busName = name
		return OnBus(old)
	}
}

// OnAddr can be used to specify an alternative I²C address. By default,
// the address is 0x76 (0x77 when the SDO pin is pulled high).
func OnAddr(addr uint16) Option {
	return func(d *Device) Option {
		old := d.addr
		d.addr = addr
		return OnAddr(old)
	}
}

// WithAmbientTemperature sets the ambient temperature in degrees Celsius
// used to encode heater targets. By default, 25.
func WithAmbientTemperature(t int) Option {
	return func(d *Device) Option {
		old := d.ambient
		d.ambient = t
		if d.sensor != nil {
			d.sensor.SetAmbientTemperature(t)
		}
		return WithAmbientTemperature(old)
	}
}

// WithRetryLimit sets how many consecutive no-data polls Poll tolerates
// before giving up. By default, DefaultRetryLimit.
func WithRetryLimit(n int) Option {
	return func(d *Device) Option {
		old := d.retryLimit
		if n < 0 {
			n = 0
		}
		d.retryLimit = n
		return WithRetryLimit(old)
	}
}
