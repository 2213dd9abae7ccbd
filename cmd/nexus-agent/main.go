// Command nexus-agent runs inside a registered node container and
// reports its host capacity to the control plane on a heartbeat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexuscore/nexuscore/pkg/agent"
	"github.com/nexuscore/nexuscore/pkg/config"
	"github.com/nexuscore/nexuscore/pkg/log"
)

func main() {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: envJSONLogs()})

	cfg := config.LoadAgent()
	a := agent.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nexus-agent: %v\n", err)
		os.Exit(1)
	}
}

func envJSONLogs() bool {
	return os.Getenv("LOG_JSON") == "true"
}
