// Package main is the copc command line tool.
package main

import (
	"log"
	"os"

	"go.viam.com/copc/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
