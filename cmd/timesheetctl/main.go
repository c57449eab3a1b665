// Command timesheetctl is the operator tool of the timesheet service: it prints
// weekly reports, drops cached weeks and applies the schema.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
