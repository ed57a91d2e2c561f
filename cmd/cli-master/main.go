package main

import (
	"github.com/UH3135/cli-master/internal/cli"
)

func main() {
	cli.Execute()
}
