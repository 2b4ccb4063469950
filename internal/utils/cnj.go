package utils

import (
	"errors"
	"fmt"
	"regexp"
)

// CaseNumberDigits is the length of a CNJ case number once punctuation is stripped
const CaseNumberDigits = 20

// ErrInvalidCaseNumber is returned when the input does not hold exactly 20 digits
var ErrInvalidCaseNumber = errors.New("case number must contain exactly 20 digits")

var nonDigit = regexp.MustCompile(`\D`)

// CaseNumber is a validated CNJ case number. The zero value is not valid;
// values are only produced by NormalizeCaseNumber.
type CaseNumber struct {
	digits string
}

// CaseNumberParts holds the fixed-width groups of a CNJ number (NNNNNNN-DD.YYYY.J.TT.OOOO)
type CaseNumberParts struct {
	Sequential  string `json:"sequential"`
	CheckDigits string `json:"checkDigits"`
	Year        string `json:"year"`
	Segment     string `json:"segment"`
	Court       string `json:"court"`
	Origin      string `json:"origin"`
}

// CleanCaseNumber removes all non-numeric characters
func CleanCaseNumber(raw string) string {
	return nonDigit.ReplaceAllString(raw, "")
}

// IsValidCaseNumber reports whether exactly 20 digits remain after stripping
func IsValidCaseNumber(raw string) bool {
	return len(CleanCaseNumber(raw)) == CaseNumberDigits
}

// NormalizeCaseNumber strips punctuation and rebuilds the canonical form
func NormalizeCaseNumber(raw string) (CaseNumber, error) {
	cleaned := CleanCaseNumber(raw)
	if len(cleaned) != CaseNumberDigits {
		return CaseNumber{}, fmt.Errorf("%w: got %d", ErrInvalidCaseNumber, len(cleaned))
	}
	return CaseNumber{digits: cleaned}, nil
}

// String returns the canonical punctuated form
func (c CaseNumber) String() string {
	if c.IsZero() {
		return ""
	}
	p := c.Parts()
	return p.Sequential + "-" + p.CheckDigits + "." + p.Year + "." + p.Segment + "." + p.Court + "." + p.Origin
}

// Digits returns the 20 bare digits
func (c CaseNumber) Digits() string {
	return c.digits
}

// IsZero reports whether c was never produced by NormalizeCaseNumber
func (c CaseNumber) IsZero() bool {
	return c.digits == ""
}

// Parts splits the number into its 7/2/4/1/2/4 groups
func (c CaseNumber) Parts() CaseNumberParts {
	if c.IsZero() {
		return CaseNumberParts{}
	}
	d := c.digits
	return CaseNumberParts{
		Sequential:  d[0:7],
		CheckDigits: d[7:9],
		Year:        d[9:13],
		Segment:     d[13:14],
		Court:       d[14:16],
		Origin:      d[16:20],
	}
}

// MarshalText emits the canonical form
func (c CaseNumber) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts any representation NormalizeCaseNumber accepts
func (c *CaseNumber) UnmarshalText(text []byte) error {
	n, err := NormalizeCaseNumber(string(text))
	if err != nil {
		return err
	}
	*c = n
	return nil
}

// CheckDigitsValid verifies the DD pair with ISO 7064 mod 97-10.
// It is informational only; portals accept numbers that fail it.
func CheckDigitsValid(c CaseNumber) bool {
	if c.IsZero() {
		return false
	}
	p := c.Parts()
	rest := p.Sequential + p.Year + p.Segment + p.Court + p.Origin + "00"
	expected := 98 - mod97(rest)
	return fmt.Sprintf("%02d", expected) == p.CheckDigits
}

func mod97(digits string) int {
	r := 0
	for _, ch := range digits {
		r = (r*10 + int(ch-'0')) % 97
	}
	return r
}
