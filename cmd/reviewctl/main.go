package main

import (
	"fmt"
	"os"
)

func main() {
	root, a := newRootCommand(os.Stdout, os.Stderr)
	err := root.Execute()
	a.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
