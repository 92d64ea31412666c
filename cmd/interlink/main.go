package main

import (
	"interlink/cmd/handlers"
	"interlink/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
