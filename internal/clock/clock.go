// Package clock provides two time readings for the client/worker machinery:
// elapsed milliseconds on the monotonic clock (deadline and timeout math) and
// the process's consumed CPU milliseconds (diagnostics). Both are read with a
// single syscall into stack-resident structs — no heap allocation and no
// locks — because call sites include watchdog signal handlers as well as
// ordinary polling loops.
package clock
