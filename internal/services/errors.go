package services

import "errors"

var (
	ErrInvalidItemType      = errors.New("invalid item type")
	ErrInvalidErrorCategory = errors.New("invalid error category")
	// The edited note matches the original note, so the correction carries
	// no signal for the feedback loop.
	ErrNoSignal = errors.New("edited note is identical to the original note")

	ErrCorrectionNotFound = errors.New("correction not found")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrEntryNotFound      = errors.New("knowledge entry not found")
	ErrAlreadyReviewed    = errors.New("already reviewed")

	// No correction exemplars available even after the unfiltered fallback;
	// reference content is never generated from zero evidence.
	ErrNoExemplars = errors.New("no correction exemplars available")

	// The text-generation dependency failed or returned an unusable payload.
	ErrGenerationFailed = errors.New("generation failed")
)
