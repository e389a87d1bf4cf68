// forkjoin-cli runs demonstration reductions on a forkjoin.Pool and reports how the
// elements were spread over the workers.
package main

import (
	"log"

	"github.com/gostdlib/forkjoin/tools/forkjoin-cli/internal/cmd"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
