package main

import (
	"github.com/parchment-labs/corpusqa/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
