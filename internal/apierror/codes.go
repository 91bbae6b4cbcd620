package apierror

// Error type URIs following the urn:moodtrack:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates request validation failed (400)
	TypeValidation = "urn:moodtrack:error:validation"

	// TypeNotFound indicates the requested resource was not found (404)
	TypeNotFound = "urn:moodtrack:error:not_found"

	// TypeInsufficientHistory indicates the analysis window holds no data (404)
	TypeInsufficientHistory = "urn:moodtrack:error:insufficient_history"

	// TypeRateLimit indicates too many requests (429)
	TypeRateLimit = "urn:moodtrack:error:rate_limit"

	// TypeInternal indicates an unexpected server error (500)
	TypeInternal = "urn:moodtrack:error:internal"

	// TypeInvalidUUID indicates an invalid UUID format in request (400)
	TypeInvalidUUID = "urn:moodtrack:error:invalid_uuid"

	// TypeFutureTimestamp indicates a timestamp too far in the future (400)
	TypeFutureTimestamp = "urn:moodtrack:error:future_timestamp"

	// TypeBadRequest indicates a malformed or invalid request (400)
	TypeBadRequest = "urn:moodtrack:error:bad_request"
)

// Titles for each error type - human-readable summaries
const (
	TitleValidation          = "Validation Error"
	TitleNotFound            = "Resource Not Found"
	TitleInsufficientHistory = "Insufficient History"
	TitleRateLimit           = "Rate Limit Exceeded"
	TitleInternal            = "Internal Server Error"
	TitleInvalidUUID         = "Invalid UUID Format"
	TitleFutureTimestamp     = "Future Timestamp Not Allowed"
	TitleBadRequest          = "Bad Request"
)
