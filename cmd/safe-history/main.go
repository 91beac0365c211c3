package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Globals struct {
	LogLevel string `env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level."`
}

type CLI struct {
	Globals
	Stats  StatsCmd  `cmd:"" help:"Prints signer and gas statistics for a Safe's transaction history."`
	Export ExportCmd `cmd:"" help:"Exports a Safe's transaction history to CSV."`
}

func main() {
	// Parse .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal(err)
	}

	// Parse CLI.
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("safe-history"),
		kong.Description("Analyzes the multisig transaction history of a Safe."),
		kong.UsageOnError(),
		kong.Vars{
			"version": "0.0.1",
		},
	)

	// Setup logger.
	logLevel, err := zapcore.ParseLevel(cli.Globals.LogLevel)
	if err != nil {
		log.Fatal(fmt.Errorf("failed to parse log level: %w", err))
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(colorable.NewColorableStderr()),
		logLevel,
	))

	// Run the CLI.
	err = ctx.Run(logger, &cli.Globals)
	ctx.FatalIfErrorf(err)
}
