package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joshelvn11/chief/cmd/chief/commands"
	"github.com/joshelvn11/chief/internal/app"
)

var version = "dev"

func main() {
	application, err := app.New(version)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if err := application.Run(os.Args[1:]); err != nil {
		code := 1
		var exitErr *commands.ExitCodeError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}
