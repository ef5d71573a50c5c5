package domain

import "fmt"

// VoteKind is the counter a vote targets.
type VoteKind string

// Vote kinds.
const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

// VoteDirection says whether a vote is cast or withdrawn.
type VoteDirection string

// Vote directions.
const (
	DirectionIncrease VoteDirection = "increase"
	DirectionDecrease VoteDirection = "decrease"
)

// ParseVoteDirection parses a direction query value. Empty means increase.
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch VoteDirection(s) {
	case "", DirectionIncrease:
		return DirectionIncrease, nil
	case DirectionDecrease:
		return DirectionDecrease, nil
	default:
		return "", NewValidationErrorWithValue("direction",
			fmt.Sprintf("must be one of: [%q, %q]", DirectionIncrease, DirectionDecrease), s)
	}
}

// Vote is a like or dislike applied to one quote.
type Vote struct {
	Kind      VoteKind
	Direction VoteDirection

	// ReverseOpposite withdraws one vote from the opposite counter when
	// increasing, if that counter is positive.
	ReverseOpposite bool
}

// Apply returns the counters after the vote. Counters never drop below zero.
func (v Vote) Apply(likes, dislikes int64) (newLikes, newDislikes int64) {
	own, opposite := &likes, &dislikes
	if v.Kind == VoteDislike {
		own, opposite = &dislikes, &likes
	}

	switch v.Direction {
	case DirectionIncrease:
		*own++

		if v.ReverseOpposite && *opposite >= 1 {
			*opposite--
		}
	case DirectionDecrease:
		if *own >= 1 {
			*own--
		}
	}

	return likes, dislikes
}

// Validate rejects unknown kinds and directions.
func (v Vote) Validate() error {
	if v.Kind != VoteLike && v.Kind != VoteDislike {
		return NewValidationErrorWithValue("kind", "must be like or dislike", v.Kind)
	}

	if v.Direction != DirectionIncrease && v.Direction != DirectionDecrease {
		return NewValidationErrorWithValue("direction",
			fmt.Sprintf("must be one of: [%q, %q]", DirectionIncrease, DirectionDecrease), v.Direction)
	}

	return nil
}
