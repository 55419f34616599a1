// Package guard switches the binaries into test mode when imported from tests,
// so wiring code never dials Postgres, Redis or Gotenberg.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LEDGER_TEST_MODE") == "" {
			_ = os.Setenv("LEDGER_TEST_MODE", "1")
		}
		_ = os.Unsetenv("GOTENBERG_URL")
	})
}
