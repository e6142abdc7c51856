package app

import (
	"fmt"
	"strconv"
	"strings"

	"telequiz/internal/catalog"
	"telequiz/internal/domain"
)

// payloadVersion tags answer callback payloads so the format can evolve
// without ambiguity against older buttons still present in chat history.
const payloadVersion = "a1"

// EncodeAnswer builds the callback payload for one answer button:
// "a1:<questionID>:<optionIndex>". Question IDs are validated at catalog
// load time to never contain the delimiter.
func EncodeAnswer(questionID string, option int) string {
	return payloadVersion + catalog.Delimiter + questionID + catalog.Delimiter + strconv.Itoa(option)
}

// DecodeAnswer parses a callback payload back into question ID and option index.
func DecodeAnswer(payload string) (string, int, error) {
	version, rest, ok := strings.Cut(payload, catalog.Delimiter)
	if !ok || version != payloadVersion {
		return "", 0, fmt.Errorf("%w: %q", domain.ErrMalformedPayload, payload)
	}
	questionID, rawOption, ok := strings.Cut(rest, catalog.Delimiter)
	if !ok || questionID == "" {
		return "", 0, fmt.Errorf("%w: %q", domain.ErrMalformedPayload, payload)
	}
	option, err := strconv.Atoi(rawOption)
	if err != nil || option < 0 {
		return "", 0, fmt.Errorf("%w: bad option index in %q", domain.ErrMalformedPayload, payload)
	}
	return questionID, option, nil
}
