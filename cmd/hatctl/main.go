// Package main is hatctl, the storefront operator CLI:
// - supply, balance: read the hat contract
// - resolve: look up a social id's verified address
// - quote, eligibility: run the pricing and eligibility engine read-only
// - migrate, events: manage and inspect the analytics store
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(GetExitCode(err))
	}
}
