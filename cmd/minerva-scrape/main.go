// Command minerva-scrape extracts the active Fallout 76 Minerva rotation and
// writes it to a JSON file.
package main

import "github.com/pfrederiksen/minerva-scrape/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
