package main

import (
	"os"
)

func main() {
	os.Exit(execute(newRootCmd(os.Stdout, os.Stderr), os.Stderr))
}
