package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ambientlabs/permitory/cmd/commands"
)

func main() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		s := <-signalChan
		log.Printf("Captured %v\n", s)
		cancel()
	}()

	rootCtx := commands.Context{
		Context: ctx,
	}
	rootCmd := commands.NewRootCommand(&rootCtx, "permitory")
	rootCmd.AddCommand(commands.NewListCommand(&rootCtx))
	rootCmd.AddCommand(commands.NewGenerateCommand(&rootCtx))
	rootCmd.AddCommand(commands.NewImportCommand(&rootCtx))
	rootCmd.AddCommand(commands.NewSignCommand(&rootCtx))
	rootCmd.AddCommand(commands.NewVerifyCommand(&rootCtx))
	rootCmd.AddCommand(commands.NewFixtureCommand(&rootCtx))
	rootCmd.AddCommand(commands.NewVersionCommand(&rootCtx))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
