package evdev

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// AbsInfo mirrors the kernel's struct input_absinfo, populated via
// EVIOCGABS.
type AbsInfo struct {
	Value      int32
	Min        int32
	Max        int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// ioctl request encoding (Linux _IOC macro), same derivation the teacher
// uses in linux_input.go.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14
	iocDirBits  = 2

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func iocRequest(dir, typ, nr, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

// evioCGAbs returns the EVIOCGABS(absCode) request code.
func evioCGAbs(absCode uint16) uintptr {
	return iocRequest(iocRead, uint32('E'), uint32(0x40+absCode), uint32(unsafe.Sizeof(AbsInfo{})))
}

// evioCGBit returns the EVIOCGBIT(evType, length) request code.
func evioCGBit(evType uint16, length int) uintptr {
	return iocRequest(iocRead, uint32('E'), uint32(0x20+evType), uint32(length))
}

func evioCGrab() uintptr {
	return iocRequest(iocWrite, uint32('E'), uint32(0x90), uint32(unsafe.Sizeof(int32(0))))
}

// GetAbsInfo issues EVIOCGABS for absCode on fd.
func GetAbsInfo(fd int, absCode uint16) (AbsInfo, error) {
	var info AbsInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGAbs(absCode), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return AbsInfo{}, errno
	}
	return info, nil
}

// Bitset is a byte-backed bitmap as returned by EVIOCGBIT, one bit per code.
type Bitset []byte

// Test reports whether bit n is set.
func (b Bitset) Test(n uint16) bool {
	idx := int(n / 8)
	if idx >= len(b) {
		return false
	}
	return b[idx]&(1<<(n%8)) != 0
}

// GetBits issues EVIOCGBIT(evType, ...) on fd and returns the resulting
// bitmap sized to hold maxCode+1 bits.
func GetBits(fd int, evType uint16, maxCode uint16) (Bitset, error) {
	buf := make([]byte, (int(maxCode)+8)/8)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGBit(evType, len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return nil, errno
	}
	return Bitset(buf), nil
}

// Grab issues EVIOCGRAB(1) on fd, exclusively grabbing the input device.
func Grab(fd int) error {
	var one int32 = 1
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGrab(), uintptr(unsafe.Pointer(&one)))
	if errno != 0 {
		return errno
	}
	return nil
}
