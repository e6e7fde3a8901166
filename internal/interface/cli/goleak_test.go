package cli

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps its opener goroutine until the last DB is closed
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}
