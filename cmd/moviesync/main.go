// Command moviesync keeps the movie search indices in sync with the
// relational catalogue.
package main

import (
	"os"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
