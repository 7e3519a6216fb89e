package handlers

import (
	"github.com/charterops/lead-pipeline/internal/aws"
	"github.com/charterops/lead-pipeline/internal/secrets"
)

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	DynamoDBClient aws.DynamoDBAPI
	SQSClient      aws.SQSAPI
	Metrics        *aws.Metrics
	Secrets        *secrets.Config
}
