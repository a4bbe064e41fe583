// Command campusauth is the operator tool for campusAuth deployments: it
// hashes passwords, seeds SQLite directories, inspects tokens, purges spent
// refresh records and runs a local load test.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
