package main

import (
	"github.com/flanksource/quality-unit/cmd"
)

func main() {
	cmd.Execute()
}
