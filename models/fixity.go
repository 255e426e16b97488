package models

import (
	"fmt"
	"strings"
)

// Fixity is a digest of a file's content.
type Fixity struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Format describes a file's format within some scheme, usually
// constants.FormatSchemeMime.
type Format struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// FixityConflictError means two sources disagree about a file's
// digest for the same algorithm.
type FixityConflictError struct {
	Algorithm string
	Existing  string
	Incoming  string
}

func (err *FixityConflictError) Error() string {
	return fmt.Sprintf("Fixity conflict for algorithm %s: %s != %s",
		err.Algorithm, err.Existing, err.Incoming)
}

/*
MergeFixity merges incoming digests into existing ones and returns
the merged list. Algorithm names and hex values are compared without
regard to case.

  - Same algorithm, same value: no-op. The existing entry wins.
  - Same algorithm, different value: *FixityConflictError.
  - Different algorithm: the incoming entry is appended.

Neither input is modified.
*/
func MergeFixity(existing, incoming []*Fixity) ([]*Fixity, error) {
	merged := make([]*Fixity, 0, len(existing)+len(incoming))
	for _, fixity := range existing {
		if fixity != nil {
			merged = append(merged, fixity)
		}
	}
	for _, in := range incoming {
		if in == nil {
			continue
		}
		var match *Fixity
		for _, fixity := range merged {
			if strings.EqualFold(fixity.Algorithm, in.Algorithm) {
				match = fixity
				break
			}
		}
		if match == nil {
			merged = append(merged, &Fixity{Algorithm: in.Algorithm, Value: in.Value})
		} else if !strings.EqualFold(match.Value, in.Value) {
			return nil, &FixityConflictError{
				Algorithm: in.Algorithm,
				Existing:  match.Value,
				Incoming:  in.Value,
			}
		}
	}
	return merged, nil
}
