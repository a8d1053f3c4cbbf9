// Package main is the entry point for the dsptool CLI, an administrator
// toolkit for SAP Datasphere tenants.
package main

import (
	"os"

	"github.com/dsphere-labs/dsptool/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
