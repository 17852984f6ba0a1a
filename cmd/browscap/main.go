package main

import (
	"os"

	"github.com/solatis/browscap/cmd/browscap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
