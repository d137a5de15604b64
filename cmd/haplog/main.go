// haplog - HAProxy log analyzer
//
// haplog counts valid and invalid lines in HAProxy HTTP logs and runs report
// commands over the lines inside an optional time window.
package main

import (
	"os"

	"github.com/ccollicutt/haplog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
