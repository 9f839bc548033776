package main

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	exitError    = 1
	exitTimedOut = 2
	exitRejected = 3
)

// outcomeErr carries a non-accepted session outcome to the exit code
type outcomeErr struct {
	outcome domain.Outcome
}

func (e *outcomeErr) Error() string {
	return fmt.Sprintf("login %s", e.outcome)
}

func outcomeError(result domain.Result) error {
	if result.Accepted() {
		return nil
	}
	return &outcomeErr{outcome: result.Outcome}
}

func exitCode(err error) int {
	var oe *outcomeErr
	if errors.As(err, &oe) {
		switch oe.outcome {
		case domain.OutcomeTimedOut:
			return exitTimedOut
		case domain.OutcomeRejected:
			return exitRejected
		}
	}
	return exitError
}
