package log

import (
	"os"
	"testing"
)

// TestingLogger returns a logger that writes to STDOUT if the test is being
// run with the verbose (-v) flag, and discards output otherwise.
//
// Must be called from a test (not init), because the verbose flag is only
// parsed at test time.
func TestingLogger(t *testing.T) Logger {
	t.Helper()

	if testing.Verbose() {
		return MustNewDefaultLogger(LogFormatPlain, LogLevelDebug, os.Stdout)
	}

	return NewNopLogger()
}
