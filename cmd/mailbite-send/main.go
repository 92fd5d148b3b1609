// Command mailbite-send delivers a single email from the command line and
// prints the outcome.
//
// Every flag can also come from the environment (MAILBITE_SMTP_HOST,
// MAILBITE_TO, ...) or from a .env file in the working directory.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
