// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Users can quote the code when reporting a problem.
//
// # Credential Errors (CRED001-CRED099)
//
//	CRED001 - Missing API key: No API key was provided
//	          Action: Enter your API key and upload again
//	          Patterns: "missing api key"
//
//	CRED002 - Rejected API key: The LLM provider refused the key
//	          Action: Check the key and try again
//	          Patterns: "api key not valid", "permission denied"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	FILE002 - Unsupported file: Only .xlsx and .xlsm workbooks are accepted
//	FILE003 - Unreadable workbook: The file could not be opened as a spreadsheet
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file is empty
//
// # Pipeline Errors (PIPE001-PIPE099)
//
//	PIPE001 - No tables: Extraction found nothing tabular
//	PIPE002 - Extraction failed
//	PIPE003 - Validation failed
//	PIPE004 - Transformation failed
//	PIPE005 - Staging failed: the upload could not be written to disk
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found or expired
//	SES002 - Not ready: no processed tables yet
//	SES003 - Unknown table label
//	SES004 - Upload replaced by a newer one in the same session
//
// # Warehouse Errors (WH001-WH099)
//
//	WH001 - Warehouse not configured
//	WH002 - Warehouse connection refused
//
// # Mail Errors (MAIL001-MAIL099)
//
//	MAIL001 - Required tables missing for the attachment
//	MAIL002 - SMTP authentication failed
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first match wins, so specific patterns come
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: stage prefixes come last so the underlying cause
// wins when it is recognised.
var errorPatterns = []errorPattern{
	// Credentials
	{
		pattern: "missing api key",
		msg: UserMessage{
			Message: "Missing API key",
			Action:  "Provide a valid API key before processing the file",
			Code:    "CRED001",
		},
	},
	{
		pattern: "api key not valid",
		msg: UserMessage{
			Message: "The API key was rejected",
			Action:  "Check the key and try again",
			Code:    "CRED002",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The API key was rejected",
			Action:  "Check the key and try again",
			Code:    "CRED002",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Upload a smaller workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Upload a smaller workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload an .xlsx or .xlsm workbook",
			Code:    "FILE002",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "The file could not be read as a spreadsheet",
			Action:  "Re-save the workbook in Excel format and try again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a workbook with data",
			Code:    "FILE005",
		},
	},

	// Pipeline
	{
		pattern: "no tables found",
		msg: UserMessage{
			Message: "No tables were found in the spreadsheet",
			Action:  "Check that the workbook contains tabular data with a header row",
			Code:    "PIPE001",
		},
	},

	// Sessions
	{
		pattern: "upload session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Upload the spreadsheet again",
			Code:    "SES001",
		},
	},
	{
		pattern: "no processed tables",
		msg: UserMessage{
			Message: "There are no processed tables yet",
			Action:  "Upload a spreadsheet first",
			Code:    "SES002",
		},
	},
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "That table does not exist",
			Action:  "Pick one of the listed tables",
			Code:    "SES003",
		},
	},
	{
		pattern: "upload superseded",
		msg: UserMessage{
			Message: "A newer upload replaced this one",
			Action:  "Wait for the latest upload to finish",
			Code:    "SES004",
		},
	},

	// Warehouse
	{
		pattern: "warehouse delivery is not configured",
		msg: UserMessage{
			Message: "Warehouse delivery is not configured",
			Action:  "Set WAREHOUSE_DRIVER and WAREHOUSE_URL",
			Code:    "WH001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the warehouse",
			Action:  "Please try again in a few moments",
			Code:    "WH002",
		},
	},

	// Mail
	{
		pattern: "required tables missing",
		msg: UserMessage{
			Message: "Some tables needed for the attachment are missing",
			Action:  "Upload a workbook that contains all required tables",
			Code:    "MAIL001",
		},
	},
	{
		pattern: "authentication failed",
		msg: UserMessage{
			Message: "The mail server rejected the sender credentials",
			Action:  "Check the sender address and app password",
			Code:    "MAIL002",
		},
	},

	// Upload flow
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "Too many uploads in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller workbook or try again later",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},

	// Generic stage failures
	{
		pattern: "staging failed",
		msg: UserMessage{
			Message: "The upload could not be stored for processing",
			Action:  "Please try again",
			Code:    "PIPE005",
		},
	},
	{
		pattern: "extraction failed",
		msg: UserMessage{
			Message: "Tables could not be extracted",
			Action:  "Check the workbook and your API key, then try again",
			Code:    "PIPE002",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "The extracted tables failed validation",
			Action:  "Review the workbook contents and try again",
			Code:    "PIPE003",
		},
	},
	{
		pattern: "transformation failed",
		msg: UserMessage{
			Message: "The tables could not be transformed",
			Action:  "Review the workbook contents and try again",
			Code:    "PIPE004",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern (not ERR000).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a *UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
