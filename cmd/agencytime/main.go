package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/agencytime/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "agencytime:", err)
		os.Exit(1)
	}
}
