package main

import (
	"log"

	"dustchain/services/verifier"
)

func main() {
	if err := verifier.Main(); err != nil {
		log.Fatalf("dust-verifierd: %v", err)
	}
}
