package main

import (
	"github.com/mchmarny/raschctl/pkg/cli"
)

func main() {
	cli.Execute()
}
