package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/charterops/lead-pipeline/internal/aws"
	"github.com/charterops/lead-pipeline/internal/contact"
	"github.com/charterops/lead-pipeline/internal/intake"
	"github.com/charterops/lead-pipeline/internal/secrets"
)

func main() {
	conf, err := secrets.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	store := intake.NewStore(clients.DynamoDB, conf.LeadImportsTable)

	// email verification is optional for the worker: without a key the
	// enrichment step commits imports unverified
	var validator *contact.Validator
	if key, err := conf.Resolve(secrets.CredentialVerifierKey); err == nil {
		validator = contact.NewValidator(conf.VerifierBaseURL, key)
	} else {
		log.Printf("worker: no verifier credential, committing imports unverified")
	}

	p := NewProcessor(store, validator)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if conf.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"import_id":"local-import-1","source":"local"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{
					Body: testBody,
				},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
