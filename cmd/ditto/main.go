package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/ditto/internal"
	"github.com/valter-silva-au/ditto/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.SetInitializer(func(configFile string) (func() error, error) {
		a, err := app.NewApp(app.ResolveBasePath(), configFile)
		if err != nil {
			return nil, err
		}
		return a.Close, nil
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
