//go:build darwin

package identity

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// probeStartToken returns the kernel-reported start time of pid in
// microseconds since the epoch, read from the kern.proc.pid sysctl. The raw
// sysctl fills a stack-resident KinfoProc so the probe performs no heap
// allocation and remains safe inside a signal handler. The syscall number
// comes from the frozen stdlib syscall package; x/sys no longer exports
// darwin syscall numbers.
func probeStartToken(pid int) (int64, bool) {
	if pid <= 0 {
		return 0, false
	}

	mib := [4]int32{unix.CTL_KERN, unix.KERN_PROC, unix.KERN_PROC_PID, int32(pid)}
	var kp unix.KinfoProc
	size := uintptr(unsafe.Sizeof(kp))

	_, _, errno := syscall.Syscall6(syscall.SYS___SYSCTL,
		uintptr(unsafe.Pointer(&mib[0])), uintptr(len(mib)),
		uintptr(unsafe.Pointer(&kp)), uintptr(unsafe.Pointer(&size)),
		0, 0)
	if errno != 0 || size == 0 {
		return 0, false
	}
	// A zeroed record with a mismatched pid means the slot is free.
	if kp.Proc.P_pid != int32(pid) {
		return 0, false
	}

	tv := kp.Proc.P_starttime
	if tv.Sec == 0 && tv.Usec == 0 {
		return 0, false
	}
	return tv.Sec*1_000_000 + int64(tv.Usec), true
}
