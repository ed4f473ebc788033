package services

import "errors"

// Sentinel errors surfaced to command handlers; everything else is a wrapped
// persistence failure and leaves state unchanged.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrNotCompleted      = errors.New("objective not completed")
	ErrAlreadyClaimed    = errors.New("objective already claimed")
	ErrInvalidObjective  = errors.New("invalid objective")
)
