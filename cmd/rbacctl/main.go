// Command rbacctl operates the RBAC service: schema migrations, permission explanations, cache
// invalidation and development tokens.
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
