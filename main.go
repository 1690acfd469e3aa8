package main

import (
	"os"

	"github.com/deeppavlov/dreamctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
