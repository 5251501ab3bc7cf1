package main

import (
	"os"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
