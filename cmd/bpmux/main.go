package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cli"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := cli.NewCLI("bpmux", version)
	c.Args = args
	c.Commands = map[string]cli.CommandFactory{
		"pipe": func() (cli.Command, error) {
			return newPipeCommand(ui, os.Stdin, os.Stdout), nil
		},
		"serve": func() (cli.Command, error) {
			return newServeCommand(ui, os.Stdout), nil
		},
		"bench": func() (cli.Command, error) {
			return newBenchCommand(ui), nil
		},
	}

	code, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err)
		return 1
	}
	return code
}
