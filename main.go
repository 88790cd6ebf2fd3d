package main

import (
	"os"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
