package main

import (
	"log/slog"
	"os"

	"herbledger/cmd/herbledger/commands"
)

func main() {
	commands.InitLogger()
	if err := commands.GetRootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}
