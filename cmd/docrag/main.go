package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gusmmm/docrag/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM: the run stops between papers and a later run
	// resumes, skipping whatever already indexed.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	if err := cli.Execute(ctx); err != nil {
		log.Fatalf("docrag: %v", err)
	}
}
