package gateway

import (
	"encoding/json"
	"strings"

	"github.com/gravitas-games/farmsync/pkg/models"
)

// Outcome is the classified disposition of a remote call.
type Outcome int

const (
	// OutcomeOK means the call succeeded.
	OutcomeOK Outcome = iota
	// OutcomeNotFound means the addressed record no longer exists.
	OutcomeNotFound
	// OutcomeSlotOccupied means another record already sits at the
	// target slot.
	OutcomeSlotOccupied
	// OutcomeOther covers transport errors, malformed responses and
	// any other rejection. Never retried automatically.
	OutcomeOther
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeSlotOccupied:
		return "slot_occupied"
	default:
		return "other_failure"
	}
}

// Error-body phrases recognized alongside structured codes. The login
// backend historically emitted prose-only bodies in English and
// Spanish, so the scan covers both.
var notFoundPhrases = []string{
	"does not exist",
	"no existe",
}

var slotOccupiedPhrases = []string{
	"already exists at this position",
	"already exists at that position",
	"ya existe en esta posicion",
	"ya existe en esta posición",
}

// Classify turns a remote result into an Outcome. A structured error
// code in the body wins; otherwise a case-insensitive phrase scan is
// applied to 4xx bodies. Anything else failing is OutcomeOther.
func Classify(r Result) Outcome {
	if r.OK {
		return OutcomeOK
	}
	if !r.ClientError() {
		return OutcomeOther
	}
	var body models.ErrorBody
	if err := json.Unmarshal([]byte(r.Body), &body); err == nil {
		switch body.Code {
		case models.ErrCodeNotFound:
			return OutcomeNotFound
		case models.ErrCodeSlotOccupied:
			return OutcomeSlotOccupied
		}
		if body.Message != "" {
			if o, ok := classifyPhrase(body.Message); ok {
				return o
			}
		}
	}
	if o, ok := classifyPhrase(r.Body); ok {
		return o
	}
	return OutcomeOther
}

func classifyPhrase(s string) (Outcome, bool) {
	lowered := strings.ToLower(s)
	for _, p := range slotOccupiedPhrases {
		if strings.Contains(lowered, p) {
			return OutcomeSlotOccupied, true
		}
	}
	for _, p := range notFoundPhrases {
		if strings.Contains(lowered, p) {
			return OutcomeNotFound, true
		}
	}
	return OutcomeOther, false
}
