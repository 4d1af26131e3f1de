package ladder

import "errors"

var (
	ErrInvalidName    = errors.New("invalid player name")
	ErrDuplicateName  = errors.New("player already registered")
	ErrPlayerNotFound = errors.New("player not found")
	ErrSamePlayer     = errors.New("a player cannot play against themselves")
	ErrInvalidOutcome = errors.New("invalid match outcome")
	ErrRatingUpdate   = errors.New("rating update failed")
	ErrBadCriterion   = errors.New("unknown ranking criterion")
	ErrBadSnapshot    = errors.New("malformed state snapshot")
)
