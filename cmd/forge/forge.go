package main

import (
	"os"

	"github.com/neurabytelabs/modus-forge/internal/forge"
)

func main() {
	os.Exit(forge.Run())
}
