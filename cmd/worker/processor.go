package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/charterops/lead-pipeline/internal/contact"
	"github.com/charterops/lead-pipeline/internal/intake"
)

// Processor drains intake notifications and drives the pending-import
// lifecycle: received -> processing -> committed | failed. It is the
// consumer side of the queue; all status writes still go through the
// intake store's transition operation.
type Processor struct {
	store     *intake.Store
	validator *contact.Validator // nil when no verifier is configured
}

// NewProcessor creates a worker processor with its dependencies injected.
func NewProcessor(store *intake.Store, validator *contact.Validator) *Processor {
	return &Processor{
		store:     store,
		validator: validator,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg intake.IntakeNotification
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log.Printf("[worker] received import=%s source=%s", msg.ImportID, msg.Source)

	imp, err := p.store.Peek(ctx, msg.ImportID)
	if err != nil {
		return fmt.Errorf("failed to fetch import: %w", err)
	}

	// Move received -> processing. A conditional failure means another
	// delivery of the same notification got here first.
	err = p.store.Transition(ctx, msg.ImportID, intake.StatusProcessing)
	var ite *intake.InvalidTransitionError
	if errors.As(err, &ite) {
		switch ite.Current {
		case intake.StatusCommitted:
			log.Printf("[worker] already committed import=%s", msg.ImportID)
			return nil
		case intake.StatusProcessing:
			// an earlier delivery moved it forward but never finished;
			// resume, the terminal transition stays race-safe
			log.Printf("[worker] resuming import=%s", msg.ImportID)
		case intake.StatusFailed:
			return fmt.Errorf("import=%s is already failed", msg.ImportID)
		default:
			return fmt.Errorf("unexpected status for import=%s: %s", msg.ImportID, ite.Current)
		}
	} else if err != nil {
		return fmt.Errorf("failed to update status to processing: %w", err)
	}

	return p.processImport(ctx, imp)
}

// processImport is the enrichment hook: today it parses the raw payload
// and verifies the lead's email when one is present. Replace the body of
// this function to plug in a real enrichment pipeline.
func (p *Processor) processImport(ctx context.Context, imp *intake.PendingLeadImport) error {
	var lead map[string]any
	if err := json.Unmarshal([]byte(imp.RawData), &lead); err != nil {
		// a malformed payload is a terminal outcome, not a retry
		if terr := p.store.TransitionWithNote(ctx, imp.ImportID, intake.StatusFailed, "payload is not a JSON object"); terr != nil {
			return fmt.Errorf("failed to mark import failed: %w", terr)
		}
		log.Printf("[worker] failed import=%s: payload is not a JSON object", imp.ImportID)
		return nil
	}

	if email, _ := lead["email"].(string); email != "" && p.validator != nil {
		res, err := p.validator.ValidateEmail(ctx, email)
		switch {
		case errors.Is(err, contact.ErrProviderUnavailable):
			// transient: the import stays in processing and the
			// redelivered message resumes it
			return fmt.Errorf("email verification unavailable for import=%s: %w", imp.ImportID, err)
		case err != nil:
			// a provider refusal is not a verdict; commit without one
			log.Printf("[worker] email verification failed for import=%s: %v", imp.ImportID, err)
		default:
			// both verdicts are fine; downstream scoring is out of scope
			log.Printf("[worker] import=%s email valid=%t", imp.ImportID, res.IsValid)
		}
	}

	if err := p.store.Transition(ctx, imp.ImportID, intake.StatusCommitted); err != nil {
		var ite *intake.InvalidTransitionError
		if errors.As(err, &ite) && intake.IsTerminal(ite.Current) {
			// a competing worker finished first
			log.Printf("[worker] import=%s already %s", imp.ImportID, ite.Current)
			return nil
		}
		return fmt.Errorf("failed to update status to committed: %w", err)
	}

	log.Printf("[worker] committed import=%s", imp.ImportID)
	return nil
}
