package main

import (
	"os"

	"github.com/rdbg/rdb/cmd/rdb/cmds"
)

func main() {
	os.Exit(cmds.Execute(os.Args[1:]))
}
