// Command expansionctl drives the store-expansion lifecycle service from the shell.
package main

import "expansioncore/internal/cli"

func main() {
	cli.Execute()
}
