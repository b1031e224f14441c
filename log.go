//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"fmt"

	"github.com/nsprtest/prfd/internal/bindings"
)

// SetLogFile redirects NSPR's internal logging to the named file. The
// special names "stderr" and "stdout" select the standard streams. What gets
// logged is controlled by NSPR itself through the NSPR_LOG_MODULES
// environment variable, e.g. NSPR_LOG_MODULES=all:5.
func SetLogFile(name string) error {
	if err := Init(); err != nil {
		return err
	}
	if ok := bindings.SetLogFile(name); !ok {
		return fmt.Errorf("prfd: cannot open log file %q", name)
	}
	return nil
}
