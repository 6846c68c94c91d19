// Command flowctl is the operator CLI: migrations, numbering repair,
// maintenance jobs, token minting and audit lookups.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
