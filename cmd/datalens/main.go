// Package main provides the entry point for the datalens CLI.
//
// datalens audits image classification datasets before training: it
// reconciles a label manifest with the files on disk, finds corrupted and
// duplicate images, and reports dataset hygiene problems.
//
// Usage:
//
//	datalens scan ./pets
//	datalens scan --manifest labels.csv --stats ./pets
//
// See --help for all available options.
package main

func main() {
	Execute()
}
