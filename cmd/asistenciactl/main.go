// Command asistenciactl is the maintenance tool for the attendance service:
// it repairs and diagnoses legacy CSV files, takes backups and hashes
// passwords for hand-seeded user files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
