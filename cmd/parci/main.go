package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jeramey/parci/internal/logging"
)

const usage = `usage: parci COMMAND

Commands:
  param     manage the encrypted parameter store
  run       run a taskfile
  git-hook  poll a git repository and run its taskfile on changes
`

func main() {
	handler := logging.NewCorrelationHandler(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(slog.New(handler))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "param":
		err = cmdParam(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "git-hook":
		err = cmdGitHook(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "parci: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "parci:", err)
		os.Exit(1)
	}
}
