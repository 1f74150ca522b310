package main

import (
	"fmt"
	"os"

	"clipfeed/internal/transport/http"
)

func main() {
	if err := http.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}
