package main

import (
	"os"

	"github.com/turbot/trail-inspector/constants"
	"github.com/turbot/trail-inspector/logging"
)

func main() {
	logging.Initialize(constants.AppName)
	os.Exit(Execute())
}
