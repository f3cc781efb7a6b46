package main

import (
	"context"
	"os"

	"mini-ack/cli"
)

func main() {
	os.Exit(cli.RunClient(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
