package main

import (
	"github.com/handiism/track-reconciler/internal/cli"
)

func main() {
	cli.Execute(cli.NewTUICommand())
}
