// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Requirement tree errors
	CodeRequirementLeafChildren   Code = "REQUIREMENT_LEAF_CANNOT_HOLD_CHILDREN"
	CodeRequirementCycle          Code = "REQUIREMENT_CYCLE"
	CodeRequirementNotFound       Code = "REQUIREMENT_NOT_FOUND"
	CodeRequirementUnknownKind    Code = "REQUIREMENT_UNKNOWN_KIND"
	CodeRequirementKindMismatch   Code = "REQUIREMENT_KIND_MISMATCH"
	CodeRequirementGroupEmpty     Code = "REQUIREMENT_GROUP_EMPTY"
	CodeRequirementInvalidPayload Code = "REQUIREMENT_INVALID_PAYLOAD"

	// History errors
	CodeHistoryInvalidOperation Code = "HISTORY_INVALID_OPERATION"
	CodeHistoryUndoFailed       Code = "HISTORY_UNDO_FAILED"
	CodeHistoryRedoFailed       Code = "HISTORY_REDO_FAILED"

	// Drag/drop errors
	CodeDropRejected       Code = "DROP_REJECTED"
	CodeDragPayloadInvalid Code = "DRAG_PAYLOAD_INVALID"

	// Rule definition errors
	CodeDefinitionNotFound        Code = "RULE_DEFINITION_NOT_FOUND"
	CodeDefinitionNameEmpty       Code = "RULE_DEFINITION_NAME_EMPTY"
	CodeDefinitionEmptyCampaignID Code = "RULE_DEFINITION_EMPTY_CAMPAIGN_ID"

	// Editing session errors
	CodeSessionNotFound    Code = "EDIT_SESSION_NOT_FOUND"
	CodeSessionWrongMode   Code = "EDIT_SESSION_WRONG_MODE"
	CodeSessionNodeMissing Code = "EDIT_SESSION_NODE_MISSING"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps an error code to an HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeRequirementNotFound, CodeDefinitionNotFound, CodeSessionNotFound,
		CodeSessionNodeMissing, CodeNotFound:
		return http.StatusNotFound
	case CodeRequirementLeafChildren, CodeRequirementCycle, CodeRequirementUnknownKind,
		CodeRequirementKindMismatch, CodeRequirementInvalidPayload,
		CodeHistoryInvalidOperation, CodeDragPayloadInvalid,
		CodeDefinitionNameEmpty, CodeDefinitionEmptyCampaignID:
		return http.StatusBadRequest
	case CodeDropRejected, CodeSessionWrongMode:
		return http.StatusConflict
	case CodeHistoryUndoFailed, CodeHistoryRedoFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
