package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/wasmship/wasmship/cmd/wasmship/commands"
	"github.com/wasmship/wasmship/internal/logfields"
	"github.com/wasmship/wasmship/internal/toolchain"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("wasmship"),
		kong.Description("Build, stage and dev-deploy WebAssembly smart contracts."),
		kong.Vars{"version": version},
	)

	if err := ctx.Run(&commands.Global{}, &cli); err != nil {
		slog.Error("Command failed", logfields.Error(err))
		// Propagate the failing tool's own exit status.
		os.Exit(toolchain.ExitCode(err))
	}
}
