// Command manuscriptctl runs operator tasks against the manuscript store.
package main

import (
	"log"
	"os"

	"manuscript-review-api/config"
	"manuscript-review-api/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	closeLog := config.InitLogging()

	err := newRootCmd(store.Open).Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}
