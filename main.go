package main

import (
	"os"

	"github.com/anuragparashar26/skillscreen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
