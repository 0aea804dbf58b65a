package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Raise the timeout: ffdl export --timeout 10m",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Re-run the export for the same page: ffdl export --skip <n>",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "Fireflies API rate limit exceeded",
		SuggestedAction: "Wait a few minutes, or lower the page size with --limit",
	},
	ErrUnauthorizedCode: {
		Code:            ErrUnauthorizedCode,
		Retryable:       false,
		Description:     "API key missing or rejected",
		SuggestedAction: "Store a valid key: ffdl auth login, or set FIREFLIES_API_KEY",
	},
	ErrUpstreamUnavailable: {
		Code:            ErrUpstreamUnavailable,
		Retryable:       true,
		Description:     "Fireflies API or media host unreachable",
		SuggestedAction: "Check network access to the API endpoint and retry",
	},
	ErrGraphQL: {
		Code:            ErrGraphQL,
		Retryable:       false,
		Description:     "GraphQL query rejected by the API",
		SuggestedAction: "Run with --debug to see the full API response",
	},
	ErrIO: {
		Code:            ErrIO,
		Retryable:       false,
		Description:     "Writing an artifact to local storage failed",
		SuggestedAction: "Check free space and permissions of the output directory",
	},
	ErrNoSentencesCode: {
		Code:            ErrNoSentencesCode,
		Retryable:       false,
		Description:     "Transcript has no sentences",
		SuggestedAction: "No action needed; sentence-derived artifacts are skipped",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Re-run with --debug and inspect the log output",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug for more details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
