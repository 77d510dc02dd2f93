// woundsense runs wound assessments and queries the assessment log.
//
// Usage:
//
//	woundsense assess  --image=<path> [--patient-id=<id>] [--patient-name=<name>] [--doctor=<id>]
//	woundsense batch   [--doctor=<id>] [--concurrency=<n>] <image>...
//	woundsense history [--patient=<id>] [--doctor=<id>] [--since=<date>] [--limit=<n>]
//	woundsense stats   --doctor=<id>
//	woundsense sections <report-file|->
//	woundsense watch   [--doctor=<id>]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
