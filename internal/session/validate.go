package session

import (
	"fmt"

	"github.com/cafecultura/cuppingd/internal/domain/model"
)

func (r *Repository) validate(in Input) error {
	switch {
	case in.TasterName == "":
		return &ValidationError{Field: "taster_name", Reason: "required"}
	case in.Origin == "":
		return &ValidationError{Field: "origin", Reason: "required"}
	case in.Producer == "":
		return &ValidationError{Field: "producer", Reason: "required"}
	case in.RoastLevel == "":
		return &ValidationError{Field: "roast_level", Reason: "required"}
	case in.PreparationMethod == "":
		return &ValidationError{Field: "preparation_method", Reason: "required"}
	case len(in.Attributes) == 0:
		return &ValidationError{Field: "attributes", Reason: "required"}
	case len(in.FlavorNotes) == 0:
		return &ValidationError{Field: "flavor_notes", Reason: "required"}
	case in.Cost < 0:
		return &ValidationError{Field: "cost", Reason: "must not be negative"}
	}
	for attr, score := range in.Attributes {
		if attr == "" {
			return &ValidationError{Field: "attributes", Reason: "empty attribute name"}
		}
		if score < minScore || score > r.maxScore {
			return &ValidationError{
				Field:  "attributes." + attr,
				Reason: fmt.Sprintf("score %.2f outside [%.0f, %.0f]", score, minScore, r.maxScore),
			}
		}
	}
	return nil
}

// Rendered returns the public view of a session: identical to the stored
// record except the taster identity, which honors the anonymity flag.
func Rendered(s model.CuppingSession) model.CuppingSession {
	out := s.Clone()
	out.TasterName = s.DisplayName()
	return out
}
