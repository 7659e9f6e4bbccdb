//go:build linux

package identity

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// AT_FDCWD is negative; converting it through a variable sidesteps the
// constant-conversion rule.
var atFdcwd = unix.AT_FDCWD

// probeStartToken returns the starttime field of /proc/<pid>/stat: clock
// ticks between system boot and process creation (field 22). The raw tick
// value is the token; it is never converted to wall clock for comparison, so
// recording and verification always use the same field in the same unit.
//
// Call sites include watchdog signal handlers, so this function must stay
// async-signal-safe: raw syscalls only, fixed-size stack buffers, no heap
// allocation, no locks, no buffered I/O.
func probeStartToken(pid int) (int64, bool) {
	if pid <= 0 {
		return 0, false
	}

	var path [32]byte
	n := copy(path[:], "/proc/")
	n += putDecimal(path[n:], uint64(pid))
	n += copy(path[n:], "/stat")
	path[n] = 0

	fd, _, errno := unix.Syscall6(unix.SYS_OPENAT,
		uintptr(atFdcwd),
		uintptr(unsafe.Pointer(&path[0])),
		uintptr(unix.O_RDONLY|unix.O_CLOEXEC), 0, 0, 0)
	if errno != 0 {
		return 0, false
	}

	var buf [1024]byte
	rn, _, errno := unix.Syscall(unix.SYS_READ, fd,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	_, _, _ = unix.Syscall(unix.SYS_CLOSE, fd, 0, 0)
	if errno != 0 || int(rn) <= 0 {
		return 0, false
	}

	return parseStatStartTicks(buf[:rn])
}

// parseStatStartTicks extracts the starttime field from a /proc/<pid>/stat
// record. The comm field can contain spaces and parentheses, so the scan
// anchors on the last ") " in the record; starttime is the 20th
// space-separated field after it.
func parseStatStartTicks(b []byte) (int64, bool) {
	end := -1
	for i := len(b) - 1; i > 0; i-- {
		if b[i-1] == ')' && b[i] == ' ' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return 0, false
	}

	// Field 0 after comm is the state character (field 3 of the full record);
	// starttime is field 22 of the full record, index 19 here.
	field := 0
	i := end
	for i < len(b) && field < 19 {
		if b[i] == ' ' {
			field++
		}
		i++
	}
	if field != 19 || i >= len(b) {
		return 0, false
	}

	var v int64
	start := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		v = v*10 + int64(b[i]-'0')
		i++
	}
	if i == start || v <= 0 {
		return 0, false
	}
	return v, true
}

// putDecimal formats v into dst and returns the number of bytes written.
func putDecimal(dst []byte, v uint64) int {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return copy(dst, tmp[i:])
}
