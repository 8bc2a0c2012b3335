//go:build linux

package disk

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unsafe"

	"github.com/s-urbaniak/uevent"
	"golang.org/x/sys/unix"
)

// Loop device ioctl numbers and flags, not currently exposed by
// golang.org/x/sys/unix; mirrors the hand-rolled loop(4) constants
// used by distri's own mount setup.
const (
	loopCtlGetFree  = 0x4c82
	loopSetFd       = 0x4c00
	loopSetStatus64 = 0x4c04

	loFlagsReadOnly = 1
	loFlagsAutoClear = 4
)

// loopInfo64 mirrors struct loop_info64 from <linux/loop.h>.
type loopInfo64 struct {
	device         uint64
	inode          uint64
	rdevice        uint64
	offset         uint64
	sizeLimit      uint64
	number         uint32
	encryptType    uint32
	encryptKeySize uint32
	flags          uint32
	filename       [64]byte
	cryptname      [64]byte
	encryptkey     [32]byte
	init           [2]uint64
}

// LoopDisk is a Disk backed by a raw image file attached as a Linux
// loop device, exercising a real block device node rather than a plain
// file descriptor. Attachment follows the standard loop(4) ioctl
// sequence (LOOP_CTL_GET_FREE, LOOP_SET_FD, LOOP_SET_STATUS64); after
// attaching, it waits for udev to announce the new /dev/loopN node via
// a uevent before returning, mirroring minitrd.go's devAdd wait-for-
// device pattern. Sector I/O itself is synchronous, same as FileDisk.
type LoopDisk struct {
	*FileDisk
	loopPath string
	loop     *os.File
}

// AttachLoop attaches imgPath as a new loop device, blocking until the
// kernel announces the device node over uevent, and returns a Disk
// reading and writing through that loop device.
func AttachLoop(imgPath string) (*LoopDisk, error) {
	loopctl, err := os.Open("/dev/loop-control")
	if err != nil {
		return nil, fmt.Errorf("disk: open /dev/loop-control: %w", err)
	}
	free, _, errno := unix.Syscall(unix.SYS_IOCTL, loopctl.Fd(), loopCtlGetFree, 0)
	loopctl.Close()
	if errno != 0 {
		return nil, fmt.Errorf("disk: LOOP_CTL_GET_FREE: %w", errno)
	}

	img, err := os.OpenFile(imgPath, os.O_RDWR|unix.O_CLOEXEC, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", imgPath, err)
	}
	defer img.Close()

	loopPath := fmt.Sprintf("/dev/loop%d", free)

	waitDone, waitErr := waitForDeviceNode(loopPath)

	loop, err := os.OpenFile(loopPath, os.O_RDWR|unix.O_CLOEXEC, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", loopPath, err)
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, loop.Fd(), loopSetFd, uintptr(img.Fd())); errno != 0 {
		loop.Close()
		return nil, fmt.Errorf("disk: LOOP_SET_FD: %w", errno)
	}

	var filename [64]byte
	copy(filename[:], []byte(imgPath))
	info := loopInfo64{
		flags:    loFlagsAutoClear | loFlagsReadOnly,
		filename: filename,
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, loop.Fd(), loopSetStatus64, uintptr(unsafe.Pointer(&info))); errno != 0 {
		loop.Close()
		return nil, fmt.Errorf("disk: LOOP_SET_STATUS64: %w", errno)
	}

	select {
	case <-waitDone:
	case err := <-waitErr:
		loop.Close()
		return nil, err
	case <-time.After(5 * time.Second):
		loop.Close()
		return nil, fmt.Errorf("disk: %s did not appear within 5s", loopPath)
	}

	return &LoopDisk{
		FileDisk: &FileDisk{f: loop, fd: int(loop.Fd())},
		loopPath: loopPath,
		loop:     loop,
	}, nil
}

// waitForDeviceNode subscribes to kernel uevent messages and signals
// waitDone once a "block"/"add" event for devName (loopPath's base
// name) is observed, adapted from minitrd.go's uevent.NewReader/
// NewDecoder loop over block-add events.
func waitForDeviceNode(loopPath string) (waitDone chan struct{}, waitErr chan error) {
	waitDone = make(chan struct{})
	waitErr = make(chan error, 1)

	devName := strings.TrimPrefix(loopPath, "/dev/")

	r, err := uevent.NewReader()
	if err != nil {
		waitErr <- fmt.Errorf("disk: uevent.NewReader: %w", err)
		return waitDone, waitErr
	}
	dec := uevent.NewDecoder(r)

	go func() {
		defer r.Close()
		for {
			ev, err := dec.Decode()
			if err != nil {
				waitErr <- fmt.Errorf("disk: uevent decode: %w", err)
				return
			}
			if ev.Subsystem != "block" || ev.Action != "add" {
				continue
			}
			if ev.Vars["DEVNAME"] != devName {
				continue
			}
			close(waitDone)
			return
		}
	}()

	return waitDone, waitErr
}

// Close detaches from the loop device's backing file descriptor. The
// kernel reclaims the loop device itself on last close because it was
// attached with LO_FLAGS_AUTOCLEAR.
func (d *LoopDisk) Close() error {
	return d.FileDisk.Close()
}
