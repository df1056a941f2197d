// Package cli implements the command-line interface for minerva-scrape.
//
// The cli package provides the Cobra-based CLI: scrape fetches the live pages
// and writes the record file, extract runs the same extraction over local
// files, and show prints the stored record or the rotation history. Output is
// text or JSON. Flags override the configuration file and environment.
package cli
