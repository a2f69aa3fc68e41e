//go:build linux

package proctitle

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// comm holds at most 15 bytes plus the terminating NUL.
const commMax = 15

// Set renames the process for role via PR_SET_NAME and rewrites argv[0].
func Set(role string) error {
	title := Title(role)
	if len(os.Args) > 0 {
		os.Args[0] = title
	}
	name := make([]byte, commMax+1)
	copy(name, kernelName(title, commMax))
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&name[0])), 0, 0, 0)
}
