// Command function runs the relay as a serverless function behind an
// API Gateway style proxy. Requests arrive under FUNCTION_BASE_PATH.
package main

import (
	"net/http"
	"os"

	"github.com/boddenberg/storefront-payment-relay/internal/app"
	"github.com/boddenberg/storefront-payment-relay/internal/config"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/zap"
)

var handler http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, app.ServiceName)

	relay, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build relay", zap.Error(err))
	}

	handler = relay.Handler
	if cfg.FunctionBasePath != "" {
		handler = http.StripPrefix(cfg.FunctionBasePath, relay.Handler)
	}
	logger.Info("function initialized", zap.String("base_path", cfg.FunctionBasePath))
}

func main() {
	adapter := httpadapter.New(handler)
	lambda.Start(adapter.ProxyWithContext)
}
