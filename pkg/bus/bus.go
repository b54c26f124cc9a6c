// Package bus implements request/response transactions on a shared,
// error-prone device bus: retries, lock ordering between logical
// channels of one physical bus, cached samples and absent-device probing.
package bus

import (
	"errors"
	"io"
)

// ErrNoDevice indicates no device acknowledged the address.
var ErrNoDevice = errors.New("bus: no acknowledgment")

// Bus is a physical device bus. Implementations are not safe for
// concurrent use; callers serialize access with Shared.
type Bus interface {
	io.Closer
	// ReadWord reads a 16-bit little-endian register.
	ReadWord(addr, reg byte) (uint16, error)
	// WriteWord writes a 16-bit little-endian register.
	WriteWord(addr, reg byte, val uint16) error
	// ReadBlock performs a block read of reg and returns the raw response
	// including the leading length byte. The response is not validated.
	ReadBlock(addr, reg byte, buf []byte) (int, error)
}
