package core

// error_messages.go maps run errors to stable codes for logs and HTTP bodies.
//
// Codes by category:
//
//	ING001 - No entity matches the object name (skip)
//	ING002 - Event without bucket or object name (skip)
//	ING003 - Entity missing from the registry (bug)
//	ING004 - Too many concurrent runs (retry later)
//	ING005 - Run panicked
//
//	CSV001 - Invalid date value
//	CSV002 - Invalid number value
//	CSV003 - Required value missing
//	CSV004 - Wrong number of columns
//	CSV005 - Malformed CSV (quoting)
//
//	OBJ001 - Source object not found
//	OBJ002 - Access to source object denied
//
//	WH001 - Load into temp table failed
//	WH002 - Append into permanent table failed
//	WH003 - Warehouse unreachable
//	WH004 - Warehouse operation timed out
//
//	ERR000 - Anything else; check the logs for the wrapped error
//
// Patterns are matched case-insensitively with strings.Contains against the
// full wrapped error text. The first match wins, so specific causes are
// listed before the generic ErrLoad / ErrAppend messages that wrap them.

import (
	"fmt"
	"strings"
)

// UserMessage is the operator-facing description of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Stable reference code
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Skips and contract failures
	{"no entity matches object name", UserMessage{"Object name does not match any entity", "Name files with payments or orders in the path", "ING001"}},
	{"event has no bucket or object name", UserMessage{"Notification has no bucket or object name", "Check the trigger payload format", "ING002"}},
	{"unknown entity", UserMessage{"Entity is not registered", "Resolver rules and registry disagree; fix the deployment", "ING003"}},
	{"too many concurrent runs", UserMessage{"All run slots are busy", "The trigger will redeliver; raise INGEST_MAX_CONCURRENT if this persists", "ING004"}},
	{"run panicked", UserMessage{"Run crashed unexpectedly", "Check the logs for the stack trace", "ING005"}},

	// CSV content
	{"invalid date", UserMessage{"Invalid date value in CSV", "Use YYYY-MM-DD dates", "CSV001"}},
	{"invalid number", UserMessage{"Invalid number value in CSV", "Use plain decimal numbers", "CSV002"}},
	{"required field", UserMessage{"Required value is empty", "Fill every id and date column", "CSV003"}},
	{"wrong number of fields", UserMessage{"Row has the wrong number of columns", "Match the entity's column layout", "CSV004"}},
	{"bare \" in non-quoted-field", UserMessage{"Malformed CSV quoting", "Quote fields containing quotes", "CSV005"}},
	{"extraneous or missing \" in quoted-field", UserMessage{"Malformed CSV quoting", "Quote fields containing quotes", "CSV005"}},

	// Source object
	{"object doesn't exist", UserMessage{"Source object not found", "The file may have been deleted before the run", "OBJ001"}},
	{"no such file or directory", UserMessage{"Source object not found", "The file may have been deleted before the run", "OBJ001"}},
	{"permission denied", UserMessage{"Access to source object denied", "Grant the loader read access to the bucket", "OBJ002"}},

	// Warehouse
	{"connection refused", UserMessage{"Warehouse unreachable", "Check connectivity and credentials", "WH003"}},
	{"context deadline exceeded", UserMessage{"Warehouse operation timed out", "Raise INGEST_RUN_TIMEOUT or split the file", "WH004"}},
	{"load failed", UserMessage{"Loading the CSV into the temp table failed", "Check the file against the entity schema", "WH001"}},
	{"append failed", UserMessage{"Appending into the staging table failed", "Check the staging table schema", "WH002"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the underlying error",
	Code:    "ERR000",
}

// MapError converts an error into a UserMessage. A nil error yields the zero value.
//
//	msg := MapError(fmt.Errorf("%w: bad row", ErrLoad))
//	// msg.Code == "WH001"
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

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
