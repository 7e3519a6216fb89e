package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/charterops/lead-pipeline/internal/aws"
	"github.com/charterops/lead-pipeline/internal/handlers"
	"github.com/charterops/lead-pipeline/internal/secrets"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.CORS())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterIntakeRoutes(r, cfg)
	handlers.RegisterContactRoutes(r, cfg)
	handlers.RegisterQuoteRoutes(r, cfg)
	handlers.RegisterSecretRoutes(r, cfg)

	return r
}

func main() {
	conf, err := secrets.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := handlers.HandlerConfig{
		DynamoDBClient: clients.DynamoDB,
		SQSClient:      clients.SQS,
		Metrics:        aws.NewMetrics(clients.CloudWatch),
		Secrets:        conf,
	}

	r := setupRouter(cfg)

	// if RUN_LOCAL is set, run a plain HTTP server for development.
	if conf.RunLocal {
		addr := ":" + conf.Port
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		// the adapter handles proxying; use adapter.ProxyWithContext for proper context propagation
		return adapter.ProxyWithContext(ctx, req)
	})
}
