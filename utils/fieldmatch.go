// utils/fieldmatch.go
package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// First run of 6-12 consecutive digits on word boundaries, the usual
	// shape of a national identity number.
	idPattern = regexp.MustCompile(`\b\d{6,12}\b`)

	// Two or three consecutive capitalized words (First Middle Last).
	namePattern = regexp.MustCompile(`[A-Z][a-zA-Z]+\s+[A-Z][a-zA-Z]+(\s+[A-Z][a-zA-Z]+)?`)
)

// OcrEvidence holds the identity fields extracted from an ID document
// image. Empty fields mean the pattern produced no candidate; a nil
// *OcrEvidence means the extraction engine itself was unreachable.
type OcrEvidence struct {
	CandidateID   string
	CandidateName string
}

// ParseIDAndName extracts a candidate identity number and a candidate
// full name from raw OCR text. Deterministic, no I/O.
func ParseIDAndName(text string) OcrEvidence {
	cleaned := strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	return OcrEvidence{
		CandidateID:   idPattern.FindString(cleaned),
		CandidateName: namePattern.FindString(cleaned),
	}
}

// MismatchError signals that OCR evidence conflicts with the submitted
// identity data. Unlike extractor unavailability this is a hard gate.
type MismatchError struct {
	Field     string
	Submitted string
	Extracted string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("submitted %s %q does not match %q extracted from the ID document", e.Field, e.Submitted, e.Extracted)
}

// CrossCheckIdentity compares OCR evidence against the submitted
// national ID and full name. Nil evidence (engine unavailable) and empty
// candidates (nothing recognized) both pass: OCR is a fraud-detection
// aid, not a gate when there is nothing to compare.
func CrossCheckIdentity(evidence *OcrEvidence, nationalID, fullName string) error {
	if evidence == nil {
		return nil
	}
	if evidence.CandidateID != "" && evidence.CandidateID != nationalID {
		return &MismatchError{Field: "national ID", Submitted: nationalID, Extracted: evidence.CandidateID}
	}
	if evidence.CandidateName != "" {
		submitted := strings.ToLower(strings.TrimSpace(fullName))
		extracted := strings.ToLower(strings.TrimSpace(evidence.CandidateName))
		if !strings.Contains(extracted, submitted) && !strings.Contains(submitted, extracted) {
			return &MismatchError{Field: "name", Submitted: fullName, Extracted: evidence.CandidateName}
		}
	}
	return nil
}
