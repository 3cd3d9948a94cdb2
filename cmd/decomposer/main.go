// Command decomposer recursively elaborates a project specification and
// splits it into subtasks, showing the growing tree while it runs.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
