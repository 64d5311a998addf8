package main

import (
	"os"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
