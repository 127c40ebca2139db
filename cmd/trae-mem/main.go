// trae-mem: durable memory for a coding assistant.
//
// Usage:
//
//	trae-mem mcp        # MCP server over stdio
//	trae-mem serve      # HTTP mirror on 127.0.0.1:37777
//	trae-mem hook --event SessionStart < payload.json
package main

import (
	"fmt"
	"os"

	"github.com/HendryAvila/trae-mem/cmd/trae-mem/commands"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
