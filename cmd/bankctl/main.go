package main

import (
	"flag"
	"log"
	"os"

	"github.com/fe-learning/felearn/internal/bankcli"
)

func main() {
	path := flag.String("data", "data.json", "catalog data file")
	flag.Parse()

	app, err := bankcli.New(*path, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("load %s: %v", *path, err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("bankctl: %v", err)
	}
}
