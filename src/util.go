package direwolf

import (
	"bytes"
	"fmt"
	"runtime"
	"time"
)

// Max simultaneous AGW network clients.
const MAX_NET_CLIENTS = 3

// Console output for protocol traces.  Color is selected separately
// with text_color_set.
func dw_printf(format string, a ...any) (int, error) {
	return fmt.Printf(format, a...)
}

// Can't be "assert" because of conflicts with stretchr/testify/assert, but otherwise, it's compatible enough
func Assert(t bool) {
	if !t {
		var _, file, line, _ = runtime.Caller(1)
		panic(fmt.Sprintf("Assertion failed at %s:%d", file, line))
	}
}

// Fixed-width byte arrays holding text keep their trailing nulls on the
// wire; strip them before use as a Go string.
func ByteArrayToString(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

func SLEEP_MS(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func SLEEP_SEC(s int) {
	SLEEP_MS(s * 1000)
}
