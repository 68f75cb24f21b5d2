package genai

import (
	"errors"
	"strings"

	openaisdk "github.com/openai/openai-go"
	googlegenai "google.golang.org/genai"
)

// quotaSignatures are lowercase substrings that mark a provider error as a
// quota/rate-limit condition when no structured error type is available.
// Kept deliberately short; structured codes are checked first.
var quotaSignatures = []string{
	"resource_exhausted",
	"quota",
	"rate limit",
	"rate-limit",
	"429",
}

// IsQuotaErr reports whether err signals quota or rate-limit exhaustion at
// the provider. Structured SDK errors are inspected first (HTTP 429 /
// RESOURCE_EXHAUSTED); wrapped or foreign errors fall back to message
// signature matching.
func IsQuotaErr(err error) bool {
	if err == nil {
		return false
	}

	var gerr googlegenai.APIError
	if errors.As(err, &gerr) {
		if gerr.Code == 429 || strings.EqualFold(gerr.Status, "RESOURCE_EXHAUSTED") {
			return true
		}
	}

	var oerr *openaisdk.Error
	if errors.As(err, &oerr) {
		if oerr.StatusCode == 429 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
