package main

import (
	"os"
)

func main() {
	a := &app{}
	if err := a.execute(newRootCmd(a)); err != nil {
		os.Exit(1)
	}
}
