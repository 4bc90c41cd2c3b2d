// aura-ai-server runs the Automation gRPC server (stub gateway by default).
// Example: go run ./cmd/aura-ai-server --addr=:50061
// Then start the daemon with: AURA_AI_PROVIDER=grpc AURA_AI_GRPC_ADDR=localhost:50061 aura start
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	aigrpc "github.com/charbel-alt28/aura-retail-ai/internal/aigateway/grpc"
	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	grpcgo "google.golang.org/grpc"
)

func main() {
	addr := flag.String("addr", ":50061", "gRPC listen address")
	provider := flag.String("provider", "stub", "gateway backend: stub, openai or anthropic")
	baseURL := flag.String("base-url", aigateway.DefaultBaseURL, "OpenAI-compatible base URL")
	model := flag.String("model", aigateway.DefaultModel, "model name")
	flag.Parse()

	var gw aigateway.Gateway = aigateway.Stub{}
	switch *provider {
	case "openai":
		g, err := aigateway.NewOpenAI(aigateway.OpenAIConfig{BaseURL: *baseURL, APIKey: config.AIKeyFromEnv(), Model: *model})
		if err != nil {
			slog.Error("openai gateway", "err", err)
			os.Exit(1)
		}
		gw = g
	case "anthropic":
		key := config.AIKeyFromEnv()
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		m := *model
		if m == aigateway.DefaultModel {
			m = ""
		}
		g, err := aigateway.NewAnthropic(aigateway.AnthropicConfig{APIKey: key, Model: m})
		if err != nil {
			slog.Error("anthropic gateway", "err", err)
			os.Exit(1)
		}
		gw = g
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		slog.Error("listen", "err", err)
		os.Exit(1)
	}
	srv := grpcgo.NewServer()
	aigrpc.Register(srv, &aigrpc.Server{Gateway: gw})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	slog.Info("automation gRPC server listening", "addr", *addr, "backend", gw.Name())
	if err := srv.Serve(lis); err != nil {
		slog.Error("serve", "err", err)
		os.Exit(1)
	}
}
