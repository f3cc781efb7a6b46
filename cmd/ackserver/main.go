package main

import (
	"context"
	"os"

	"mini-ack/cli"
)

func main() {
	os.Exit(cli.RunServer(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
