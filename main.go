package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vladimiradmaev/glucose-guide/internal/cli"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}

	cli.Execute()
}
