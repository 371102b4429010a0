package osal

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// PauseFileEnv names the environment variable that overrides the pause-file
// path when Config.PauseAtStartupFile is empty.
const PauseFileEnv = "OSAL_PAUSE_AT_STARTUP_FILE"

// Pause creates the configured pause file and polls every 100ms until an
// external observer removes it, giving a debugger time to attach before the
// runtime proceeds. A file that cannot be created is reported to stderr and
// skipped.
func (l *Layer) Pause() {
	name := l.cfg.PauseAtStartupFile
	if name == "" {
		name = os.Getenv(PauseFileEnv)
	}
	if name == "" {
		name = fmt.Sprintf("./vm.paused.%d", os.Getpid())
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open pause file '%s', continuing immediately.\n", name)
		return
	}
	f.Close()
	for {
		if _, err := os.Stat(name); err != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// WriteFully writes all of buf to w, retrying partial writes. An OS write
// is allowed to stop short without error, so a single call is not enough
// for callers that need the whole buffer on disk.
func WriteFully(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NakedSleep sleeps without any runtime interaction, chunked so the host
// never sees a single sleep of a second or more.
func NakedSleep(d time.Duration) {
	const chunk = 999 * time.Millisecond
	for d > chunk {
		time.Sleep(chunk)
		d -= chunk
	}
	if d > 0 {
		time.Sleep(d)
	}
}

// Server-class thresholds. A machine short of these gets the client
// ergonomics.
const (
	serverProcessors   = 2
	serverMemory       = 2 << 30
	missingMemoryAllow = 256 << 20
)

// IsServerClassMachine reports whether the host qualifies for server
// ergonomics: at least two processors and roughly two gigabytes of physical
// memory, with an allowance for memory the firmware holds back.
func IsServerClassMachine() bool {
	if runtime.NumCPU() < serverProcessors {
		return false
	}
	mem, err := physicalMemory()
	if err != nil {
		return false
	}
	return mem >= serverMemory-missingMemoryAllow
}
