// Package guard forces test-safe process settings before any package-level
// initialization that reads them. Imported blank from every test package.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FIELDGATE_TEST_MODE") == "" {
			_ = os.Setenv("FIELDGATE_TEST_MODE", "1")
		}
		if os.Getenv("TOKEN_SECRET") == "" {
			_ = os.Setenv("TOKEN_SECRET", "test-secret")
		}
	})
}
