package main

import (
	"github.com/spookydb/spookydb/cmd/spooky/cmd"
)

func main() {
	cmd.Execute()
}
