// Command flagkit evaluates feature flags and experiments from a datafile.
//
// It serves the decision API over HTTP and offers one-shot commands for
// inspecting a datafile:
//
//	flagkit serve --addr :8080
//	flagkit decide user_1 new_search --attr plan=pro
//	flagkit variation checkout_flow user_1 --attr country=US
//	flagkit bucket checkout_flow user_1
//	flagkit validate datafile.json
//
// Configuration comes from the environment (and a .env file when present);
// flags override the datafile path, log level and listen address.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
