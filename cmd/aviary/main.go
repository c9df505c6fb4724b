package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/aviary-sh/aviary/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "aviary",
		EnableShellCompletion: true,
		Usage:                 "Run account automation schedulers and workflows",
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("aviary").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
