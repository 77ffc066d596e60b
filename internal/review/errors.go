package review

import "errors"

var (
	// ErrEntryNotFound means the canonical question is not in the knowledge base.
	ErrEntryNotFound = errors.New("knowledge base entry not found")

	// ErrInvalidInput means a required field is empty or a row index is out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCorrectionToUndo means there is no corrected record left to undo.
	ErrNoCorrectionToUndo = errors.New("no correction to undo")

	// ErrNoPreviousAnswer means the correction to undo did not record the prior answer.
	ErrNoPreviousAnswer = errors.New("correction has no previous answer")

	// ErrInvalidTransition means an operation tried an illegal state change.
	ErrInvalidTransition = errors.New("invalid state transition")
)
