//go:build unix

package fdlimit

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestCheckWithinLimit(t *testing.T) {
	if err := Check(1, 0); err != nil {
		t.Errorf("Check(1, 0) should succeed on any reasonable system: %v", err)
	}
}

func TestCheckExceedsLimit(t *testing.T) {
	// No real system has a soft RLIMIT_NOFILE anywhere near this high.
	const absurd = 1 << 30
	if err := Check(absurd, 0); err == nil {
		t.Error("expected an error requesting an absurdly large fd count")
	}
}

func TestCheckReserveReducesAvailability(t *testing.T) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		t.Skipf("getrlimit unavailable: %v", err)
	}
	cur := int(rlim.Cur)

	if err := Check(cur, 0); err != nil {
		t.Errorf("Check(%d, 0) should just fit: %v", cur, err)
	}
	if err := Check(cur, 1); err == nil {
		t.Errorf("Check(%d, 1) should exceed the limit by one reserved descriptor", cur)
	}
}
