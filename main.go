// mininet - a minimal TCP/UDP socket tool in the style of netcat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mininet/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mininet: %v\n", err)
		os.Exit(1)
	}
}
