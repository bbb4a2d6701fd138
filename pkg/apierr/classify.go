// Package apierr normalizes failures from the generation API into
// actionable outcomes. Classification is a pure function: any error value,
// structured or not, maps to exactly one Outcome and never panics.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind string

const (
	KindQuotaExceeded            Kind = "quota_exceeded"
	KindBillingRestricted        Kind = "billing_restricted"
	KindCredentialExpired        Kind = "credential_expired"
	KindCredentialInvalid        Kind = "credential_invalid"
	KindCredentialNotProvisioned Kind = "credential_not_provisioned"
	KindAPIError                 Kind = "api_error"
	KindUnexpected               Kind = "unexpected"
)

// Outcome is the normalized classification result surfaced to the user
type Outcome struct {
	Kind          Kind
	Message       string
	RetryDelaySec int

	// ResetCredential signals that the cached credential selection must be
	// cleared before the next attempt
	ResetCredential bool
}

// Retryable reports whether the outcome carries a server-specified retry delay
func (o Outcome) Retryable() bool {
	return o.RetryDelaySec > 0
}

// StructuredError is the common shape recovered from the various error
// representations the API surfaces (typed errors, gRPC statuses, JSON
// embedded in message text).
type StructuredError struct {
	Code    int              `json:"code"`
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Details []map[string]any `json:"details"`
}

// rule pairs a predicate with its outcome so that the priority order of
// classification stays auditable as a flat list
type rule struct {
	match   func(*StructuredError) bool
	outcome func(*StructuredError) Outcome
}

var rules = []rule{
	{
		match: func(se *StructuredError) bool {
			return se.Status == "RESOURCE_EXHAUSTED" || se.Code == 429
		},
		outcome: func(se *StructuredError) Outcome {
			if delay, ok := retryDelayHint(se.Details); ok {
				return Outcome{
					Kind:          KindQuotaExceeded,
					Message:       fmt.Sprintf("Rate limit exceeded. Retry in %d seconds.", delay),
					RetryDelaySec: delay,
				}
			}
			return Outcome{
				Kind:    KindQuotaExceeded,
				Message: "API quota exceeded. Please wait a moment and try again.",
			}
		},
	},
	{
		match: func(se *StructuredError) bool {
			msg := strings.ToLower(se.Message)
			return strings.Contains(msg, "billed users") || strings.Contains(msg, "billing")
		},
		outcome: func(se *StructuredError) Outcome {
			return Outcome{
				Kind:    KindBillingRestricted,
				Message: "This capability is only available for billing-enabled API keys.",
			}
		},
	},
	{
		match: func(se *StructuredError) bool {
			if hasReason(se.Details, "API_KEY_INVALID") {
				return true
			}
			return se.Status == "INVALID_ARGUMENT" && strings.Contains(strings.ToLower(se.Message), "api key")
		},
		outcome: func(se *StructuredError) Outcome {
			if strings.Contains(strings.ToLower(se.Message), "expired") {
				return Outcome{
					Kind:    KindCredentialExpired,
					Message: "Your API key has expired. Please provide a new one.",
				}
			}
			return Outcome{
				Kind:    KindCredentialInvalid,
				Message: "Your API key is not valid. Please check it and try again.",
			}
		},
	},
	{
		match: func(se *StructuredError) bool {
			return se.Status == "NOT_FOUND" || se.Code == 404
		},
		outcome: func(se *StructuredError) Outcome {
			return Outcome{
				Kind:            KindCredentialNotProvisioned,
				Message:         "The selected API key cannot access this model. Please select another key and try again.",
				ResetCredential: true,
			}
		},
	},
}

// Classify maps an arbitrary failure from the generation API to a normalized
// outcome. It never panics and never fails; unrecognized inputs fall through
// to an unexpected-error outcome.
func Classify(err error) Outcome {
	se := extract(err)
	if se == nil {
		return Outcome{
			Kind:    KindUnexpected,
			Message: fmt.Sprintf("An unexpected error occurred: %v", err),
		}
	}

	for _, r := range rules {
		if r.match(se) {
			return r.outcome(se)
		}
	}

	msg := se.Message
	if msg == "" {
		msg = se.Status
	}
	return Outcome{
		Kind:    KindAPIError,
		Message: fmt.Sprintf("API error: %s", msg),
	}
}

// extract recovers a structured error from the opaque input, trying typed
// errors first and JSON embedded in the message text last. Returns nil when
// nothing structured can be found.
func extract(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StructuredError{
			Code:    apiErr.Code,
			Status:  apiErr.Status,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}
	}

	var gapiErr *googleapi.Error
	if errors.As(err, &gapiErr) {
		se := &StructuredError{
			Code:    gapiErr.Code,
			Message: gapiErr.Message,
		}
		for _, item := range gapiErr.Errors {
			if item.Reason != "" {
				se.Details = append(se.Details, map[string]any{"reason": item.Reason})
			}
		}
		return se
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		se := &StructuredError{
			Code:    grpcHTTPCode(st.Code()),
			Status:  grpcStatusName(st.Code()),
			Message: st.Message(),
		}
		for _, detail := range st.Details() {
			if info, ok := detail.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
				sec := int(info.GetRetryDelay().AsDuration().Seconds())
				se.Details = append(se.Details, map[string]any{"retryDelay": fmt.Sprintf("%ds", sec)})
			}
		}
		return se
	}

	return decodeEmbedded(err.Error())
}

// decodeEmbedded attempts to parse a serialized API error out of message
// text, accepting both {"error": {...}} envelopes and bare objects. Any
// decode failure falls back silently to nil.
func decodeEmbedded(msg string) *StructuredError {
	start := strings.IndexByte(msg, '{')
	if start < 0 {
		return nil
	}
	raw := msg[start:]

	var envelope struct {
		Error *StructuredError `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && envelope.Error != nil {
		return envelope.Error
	}

	var bare StructuredError
	if err := json.Unmarshal([]byte(raw), &bare); err == nil && (bare.Code != 0 || bare.Status != "" || bare.Message != "") {
		return &bare
	}

	return nil
}

// retryDelayHint scans the detail list for a retry delay formatted as
// "<integer>s", as carried by google.rpc.RetryInfo
func retryDelayHint(details []map[string]any) (int, bool) {
	for _, detail := range details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		sec, err := strconv.Atoi(strings.TrimSuffix(raw, "s"))
		if err != nil || sec < 0 {
			continue
		}
		return sec, true
	}
	return 0, false
}

func hasReason(details []map[string]any, reason string) bool {
	for _, detail := range details {
		if r, ok := detail["reason"].(string); ok && r == reason {
			return true
		}
	}
	return false
}

func grpcHTTPCode(c codes.Code) int {
	switch c {
	case codes.InvalidArgument:
		return 400
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.ResourceExhausted:
		return 429
	case codes.Unavailable:
		return 503
	default:
		return 500
	}
}

// grpcStatusName converts a gRPC code to its canonical SCREAMING_SNAKE name
// so the same rules apply to REST and gRPC transports
func grpcStatusName(c codes.Code) string {
	var b strings.Builder
	for i, r := range c.String() {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
