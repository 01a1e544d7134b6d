package main

import (
	"fmt"
	"os"

	cli "github.com/voxloop/voxd/cmd/voxd"
)

func main() {
	if err := cli.SetupRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
