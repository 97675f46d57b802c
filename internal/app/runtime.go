package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv disables access logging and process startup when true.
const TestModeEnv = "COMPANION_TEST_MODE"

// InTestMode reports whether TestModeEnv was enabled when first consulted.
var InTestMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

func parseTestMode(value string) bool {
	on, err := strconv.ParseBool(value)
	return err == nil && on
}
