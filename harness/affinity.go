package harness

import "golang.org/x/sys/unix"

// PinAffinity restricts the calling OS thread to the given CPU ids, the
// Go counterpart of a native experiment driver pinning each worker
// thread to one core before a timed run. exec.Run's worker goroutines
// are scheduled by the Go runtime rather than mapped one-to-one onto OS
// threads, so this pins only the driver's own thread (via
// runtime.LockOSThread, left to the caller) rather than each individual
// query worker; a closer match would require exec.Run to expose a
// per-goroutine affinity hook, which it does not today.
//
// A nil or empty cpus leaves the thread's current affinity unchanged and
// returns nil rather than an error.
func PinAffinity(cpus []int32) error {
	if len(cpus) == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(int(cpu))
	}
	return unix.SchedSetaffinity(0, &set)
}
