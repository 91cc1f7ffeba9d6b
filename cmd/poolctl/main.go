package main

import (
	"poolwatch-backend/cmd/poolctl/commands"
	"poolwatch-backend/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
