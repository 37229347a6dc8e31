package main

import (
	"os"

	"github.com/userauth-app/authclient/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
