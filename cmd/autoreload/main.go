package main

import (
	"fmt"
	"os"

	"github.com/spcent/autoreload/cmd/autoreload/commands"
	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
)

func main() {
	if err := commands.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if code, ok := output.ExitCode(err); ok {
			if code != output.ExitOK {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(output.ExitFailure)
	}
}
