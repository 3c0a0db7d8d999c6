package errors

// ErrorCode identifies a failure class so callers can branch on it without
// matching message text.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeUnsupportedExchange  ErrorCode = 101
	ErrCodeInvalidParameter     ErrorCode = 103

	// Market data errors (200-299)
	ErrCodeFetchFailed      ErrorCode = 200
	ErrCodeParseFailed      ErrorCode = 201
	ErrCodeInsufficientData ErrorCode = 202
	ErrCodeSymbolNotFound   ErrorCode = 203

	// Trading errors (300-399)
	ErrCodeOrderFailed       ErrorCode = 300
	ErrCodeOrderRejected     ErrorCode = 301
	ErrCodeBelowMinNotional  ErrorCode = 302
	ErrCodeInsufficientFunds ErrorCode = 303

	// Risk and position errors (400-499)
	ErrCodeRiskHalted        ErrorCode = 400
	ErrCodeMaxPositions      ErrorCode = 401
	ErrCodeCooldown          ErrorCode = 402
	ErrCodeInvalidTransition ErrorCode = 403

	// Notification errors (500-599)
	ErrCodeNotifyFailed ErrorCode = 500
)
