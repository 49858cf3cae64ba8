package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dejobratic/orderflow/internal/cli"
	"github.com/dejobratic/orderflow/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orderflow: failed to load config: %v\n", err)
		os.Exit(cli.ExitValidation)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(cfg)
	cmd.SetContext(ctx)

	code := cli.Execute(cmd)
	stop()
	os.Exit(code)
}
