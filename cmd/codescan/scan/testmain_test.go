package scan_test

import (
	"log/slog"
	"testing"

	"github.com/codescan-io/codescan/cmd/codescan/internal/cmd"
	"github.com/codescan-io/codescan/cmd/codescan/internal/testcmd"
	"github.com/codescan-io/codescan/cmd/codescan/scan"
	"github.com/codescan-io/codescan/internal/testlogger"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(testlogger.New()))
	testcmd.CommandsUnderTest = []cmd.CommandBuilder{scan.Command}
	m.Run()
}
