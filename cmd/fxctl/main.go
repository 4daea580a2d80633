// Command fxctl runs forecasts in-process without the HTTP service.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
