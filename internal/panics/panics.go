// Package panics wraps the consensus task's entry points so that an
// unrecovered panic is logged and turned into a clean process halt,
// matching daglabs-btcd's util/panics.HandlePanic. The core's §7 "fatal
// to the core; process halts rather than diverge" errors go through
// this same path once they've been logged by the caller.
package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/axiomchain/axiomd/internal/logs"
)

// HandlePanic recovers a panic on the calling goroutine, logs it along
// with the stack trace, and exits the process. Call it deferred at the
// top of any goroutine the consensus task spawns.
func HandlePanic(log *logs.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		log.Criticalf("fatal error: %+v", err)
		if goroutineStackTrace != nil {
			log.Criticalf("goroutine stack trace: %s", goroutineStackTrace)
		}
		log.Criticalf("stack trace: %s", debug.Stack())
		_ = log.Backend().Close()
		close(done)
	}()

	const timeout = 5 * time.Second
	select {
	case <-time.After(timeout):
		fmt.Fprintln(os.Stderr, "couldn't handle a fatal error in time, exiting")
	case <-done:
	}
	os.Exit(1)
}

// Halt logs a fatal consensus error and exits, used by ChainSelector
// when a StoreUnavailable or ExecutorTimeout error is returned from the
// single-threaded consensus task rather than recovered from a panic.
func Halt(log *logs.Logger, reason string, err error) {
	log.Criticalf("halting: %s: %+v", reason, err)
	_ = log.Backend().Close()
	os.Exit(1)
}
