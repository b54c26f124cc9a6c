//go:build !linux

package bus

import "errors"

// OpenI2C is only available on linux.
func OpenI2C(index int) (Bus, error) {
	return nil, errors.New("bus: i2c-dev requires linux")
}
