// Command candidatesearchd runs the candidate search service: the HTTP
// search API, the RabbitMQ ingest consumer, and operator subcommands for
// diagnostics and full reindex.
package main

import (
	"fmt"
	"os"

	"github.com/itrecruiter/candidatesearch/cmd/candidatesearchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
