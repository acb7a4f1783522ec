// Package main provides the policy search server and its operational
// subcommands (migrate, seed, search).
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	// glog writes fatal startup errors; keep them on stderr.
	_ = flag.Set("logtostderr", "true")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
