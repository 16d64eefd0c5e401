package main

import (
	"os"

	"github.com/bnema/nodetel/cmd"
)

func main() {
	os.Exit(cmd.Run(os.Args[1:], os.Stdout, os.Stderr))
}
