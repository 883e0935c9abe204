package config_test

import (
	"testing"

	"github.com/codescan-io/codescan/internal/testutility"
)

func TestMain(m *testing.M) {
	m.Run()

	testutility.CleanSnapshots(m)
}
