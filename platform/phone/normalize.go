// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "IN"

// Normalizer formats numbers to E.164, interpreting national numbers in Region.
type Normalizer struct {
	Region string
}

// NewNormalizer returns a Normalizer for region, falling back to DefaultRegion.
func NewNormalizer(region string) Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return Normalizer{Region: region}
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func (n Normalizer) NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	region := n.Region
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// FromTransportUser converts a bare international user id (digits only, as
// delivered by the messaging transport) into E.164.
func (n Normalizer) FromTransportUser(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return ""
	}
	if !strings.HasPrefix(user, "+") {
		user = "+" + user
	}
	return n.NormalizeE164(user)
}

// NormalizeE164 formats input using DefaultRegion.
func NormalizeE164(input string) string {
	return Normalizer{Region: DefaultRegion}.NormalizeE164(input)
}
