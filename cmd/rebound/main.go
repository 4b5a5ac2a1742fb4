package main

import (
	"os"

	"github.com/hedeqiang/rebound/cmd/rebound/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
