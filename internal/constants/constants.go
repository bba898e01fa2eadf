package constants

// Session
const (
	SessionCookieName = "school_session"
	ContextKeyUserID  = "user_id"
)

// Validation limits
const (
	MinPasswordLength = 8
	MaxUsernameLength = 50
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Uploads
const (
	// MaxUploadSize limits a single attachment to 20 MiB.
	MaxUploadSize = 20 << 20
	// MaxAttachmentsPerSubmission caps files per review submission.
	MaxAttachmentsPerSubmission = 10
)

// Review
const (
	// MaxBulkReviewIDs caps the id list accepted by the bulk review endpoint.
	MaxBulkReviewIDs = 200
)
