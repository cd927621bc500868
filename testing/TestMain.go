// Package testing prepares the environment for package tests. Importing it
// for side effects keeps the binaries from starting and points external
// services at unroutable addresses.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var defaults = map[string]string{
	"INKWORKS_TEST_MODE": "1",
	"GOTENBERG_URL":      "http://127.0.0.1:0",
	"CNPJ_API_URL":       "http://127.0.0.1:0",
	"SESSION_SECRET":     "test-session-secret",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range defaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be called from a package TestMain to run with the defaults applied.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
