// gnsstage - GNSS Log Stage Playback
//
// gnsstage replays the fixes in a GNSS receiver log as positions around a
// fixed observer, either from a finished log or by following a live one.
package main

import (
	"os"

	"github.com/ccollicutt/gnsstage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
