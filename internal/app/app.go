// Package app wires chief's dependency graph exactly once per process
// invocation: it loads an optional .env file, builds the logger, and hands
// both to the cobra command tree. Everything past this point (config
// loading, schedule compilation, telemetry, dispatch) is built fresh per
// command, since each command is a short-lived CLI invocation rather than
// a long-running server.
package app

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/joshelvn11/chief/cmd/chief/commands"
	"github.com/joshelvn11/chief/internal/platform/logger"
)

// App holds the process-wide dependencies every command shares.
type App struct {
	Version string
	log     *slog.Logger
}

// New loads .env (if present) and builds the logger. A missing .env file
// is not an error; godotenv.Load on a file that does not exist is exactly
// what a deployment without local secrets looks like.
func New(version string) (*App, error) {
	_ = godotenv.Load()

	env := os.Getenv("CHIEF_ENV")
	if env == "" {
		env = "prod"
	}
	log := logger.New(logger.Options{
		Env:          env,
		ConsoleLevel: os.Getenv("CHIEF_LOG_LEVEL"),
		FileLevel:    "debug",
		File:         os.Getenv("CHIEF_LOG_FILE"),
		App:          "chief",
	})

	return &App{Version: version, log: log}, nil
}

// Run builds the root cobra command and executes it against args.
func (a *App) Run(args []string) error {
	defer logger.Close(a.log)
	root := commands.NewRootCmd(a.Version, a.log)
	root.SetArgs(args)
	return root.Execute()
}
