// Command kidspark is the content pipeline CLI: an interactive chat for
// exercising the turn pipeline and an indexer for loading the content
// libraries.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
