package main

import (
	"context"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
