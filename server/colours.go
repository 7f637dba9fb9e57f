package server

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m" // Reset to default color
)

var methodColors = map[string]string{
	"GET":     Green,
	"POST":    Yellow,
	"PUT":     Blue,
	"DELETE":  Red,
	"PATCH":   Magenta,
	"OPTIONS": Cyan,
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}
