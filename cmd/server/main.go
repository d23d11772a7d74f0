package main

import (
	"os"

	"github.com/sgics/sgics/internal/server"
)

func main() {
	os.Exit(server.Main())
}
