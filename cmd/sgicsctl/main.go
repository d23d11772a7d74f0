package main

import (
	"os"

	"github.com/sgics/sgics/internal/ctl"
)

func main() {
	os.Exit(ctl.Main())
}
