//go:build linux

package bus

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

const (
	iocSLAVE = 0x0703
	iocSMBUS = 0x0720

	smbusRead  = 1
	smbusWrite = 0

	smbusWordData  = 3
	smbusBlockData = 5

	smbusBlockMax = 32
)

type smbusIoctlData struct {
	readWrite uint8
	command   uint8
	size      uint32
	data      unsafe.Pointer
}

type i2cDev struct {
	file *os.File
	addr byte
}

// OpenI2C opens /dev/i2c-<index>.
func OpenI2C(index int) (Bus, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/i2c-%d", index), os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	return &i2cDev{file: f, addr: 0xff}, nil
}

// Close implements Bus.
func (d *i2cDev) Close() error {
	return d.file.Close()
}

// ReadWord implements Bus.
func (d *i2cDev) ReadWord(addr, reg byte) (uint16, error) {
	var data [smbusBlockMax + 2]byte
	if err := d.transfer(addr, smbusRead, reg, smbusWordData, &data); err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

// WriteWord implements Bus.
func (d *i2cDev) WriteWord(addr, reg byte, val uint16) error {
	var data [smbusBlockMax + 2]byte
	data[0], data[1] = byte(val), byte(val>>8)
	return d.transfer(addr, smbusWrite, reg, smbusWordData, &data)
}

// ReadBlock implements Bus.
func (d *i2cDev) ReadBlock(addr, reg byte, buf []byte) (int, error) {
	var data [smbusBlockMax + 2]byte
	if err := d.transfer(addr, smbusRead, reg, smbusBlockData, &data); err != nil {
		return 0, err
	}
	n := 1 + int(data[0])
	if n > len(data) {
		n = len(data)
	}
	return copy(buf, data[:n]), nil
}

func (d *i2cDev) transfer(addr byte, rw uint8, reg byte, size uint32, data *[smbusBlockMax + 2]byte) error {
	if d.addr != addr {
		_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, d.file.Fd(), iocSLAVE, uintptr(addr))
		if errno != 0 {
			return errno
		}
		d.addr = addr
	}
	args := smbusIoctlData{readWrite: rw, command: reg, size: size, data: unsafe.Pointer(data)}
	switch errno := d.ioctl(iocSMBUS, unsafe.Pointer(&args)); errno {
	case 0:
		return nil
	case syscall.ENXIO, syscall.EREMOTEIO:
		return ErrNoDevice
	default:
		return errno
	}
}

func (d *i2cDev) ioctl(req uint, ptr unsafe.Pointer) syscall.Errno {
	_, _, err := syscall.Syscall(syscall.SYS_IOCTL, d.file.Fd(), uintptr(req), uintptr(ptr))
	return err
}
