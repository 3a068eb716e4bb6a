package main

import (
	"context"
	"os"
	"schedule-extractor/cmd/extract-schedule/commands"
	"schedule-extractor/lib/osutil"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())
	code := commands.ExecuteContext(ctx)
	stop()
	os.Exit(code)
}
