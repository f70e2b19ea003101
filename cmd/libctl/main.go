// Package main provides libctl, an offline tool for inspecting and seeding
// persisted library stores.
//
// Usage:
//
//	libctl --driver badger --path ~/library/db inspect books
//	libctl --driver sqlite --path ~/library/library.db stats
//	libctl --driver badger --path ~/library/db seed
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
