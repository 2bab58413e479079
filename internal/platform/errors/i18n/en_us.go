package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeRequirementLeafChildren   = "REQUIREMENT_LEAF_CANNOT_HOLD_CHILDREN"
	CodeRequirementCycle          = "REQUIREMENT_CYCLE"
	CodeRequirementNotFound       = "REQUIREMENT_NOT_FOUND"
	CodeRequirementUnknownKind    = "REQUIREMENT_UNKNOWN_KIND"
	CodeRequirementKindMismatch   = "REQUIREMENT_KIND_MISMATCH"
	CodeRequirementGroupEmpty     = "REQUIREMENT_GROUP_EMPTY"
	CodeRequirementInvalidPayload = "REQUIREMENT_INVALID_PAYLOAD"
	CodeHistoryInvalidOperation   = "HISTORY_INVALID_OPERATION"
	CodeHistoryUndoFailed         = "HISTORY_UNDO_FAILED"
	CodeHistoryRedoFailed         = "HISTORY_REDO_FAILED"
	CodeDropRejected              = "DROP_REJECTED"
	CodeDragPayloadInvalid        = "DRAG_PAYLOAD_INVALID"
	CodeDefinitionNotFound        = "RULE_DEFINITION_NOT_FOUND"
	CodeDefinitionNameEmpty       = "RULE_DEFINITION_NAME_EMPTY"
	CodeDefinitionEmptyCampaignID = "RULE_DEFINITION_EMPTY_CAMPAIGN_ID"
	CodeSessionNotFound           = "EDIT_SESSION_NOT_FOUND"
	CodeSessionWrongMode          = "EDIT_SESSION_WRONG_MODE"
	CodeSessionNodeMissing        = "EDIT_SESSION_NODE_MISSING"
	CodeNotFound                  = "NOT_FOUND"
)

// Announcement keys for screen-reader messages that confirm a successful
// canvas operation. They live in the same catalogs as the error messages so
// a session speaks one language throughout.
const (
	MsgNodeAdded    = "ANNOUNCE_NODE_ADDED"
	MsgNodeMoved    = "ANNOUNCE_NODE_MOVED"
	MsgNodeUpdated  = "ANNOUNCE_NODE_UPDATED"
	MsgNodeDeleted  = "ANNOUNCE_NODE_DELETED"
	MsgChangeUndone = "ANNOUNCE_CHANGE_UNDONE"
	MsgChangeRedone = "ANNOUNCE_CHANGE_REDONE"
)

var enUS = map[Code]string{
	CodeRequirementLeafChildren:   "A single requirement cannot contain other requirements",
	CodeRequirementCycle:          "A group cannot be moved inside itself",
	CodeRequirementNotFound:       "The requirement no longer exists",
	CodeRequirementUnknownKind:    "Unknown requirement type {{.kind}}",
	CodeRequirementKindMismatch:   "A group cannot be turned into a single requirement",
	CodeRequirementGroupEmpty:     "The {{.kind}} group has no requirements",
	CodeRequirementInvalidPayload: "The requirement data is incomplete",
	CodeHistoryInvalidOperation:   "The change could not be recorded",
	CodeHistoryUndoFailed:         "Nothing could be undone",
	CodeHistoryRedoFailed:         "Nothing could be redone",
	CodeDropRejected:              "The requirement cannot be dropped there",
	CodeDragPayloadInvalid:        "The dragged item is not a valid requirement",
	CodeDefinitionNotFound:        "Rule definition not found",
	CodeDefinitionNameEmpty:       "Rule definition name is required",
	CodeDefinitionEmptyCampaignID: "Rule definition campaign is required",
	CodeSessionNotFound:           "Editing session not found",
	CodeSessionWrongMode:          "No requirement is being moved right now",
	CodeSessionNodeMissing:        "The requirement is not part of this definition",
	CodeNotFound:                  "Record not found",

	MsgNodeAdded:    "Added {{.node}}",
	MsgNodeMoved:    "Moved {{.node}} into {{.container}}",
	MsgNodeUpdated:  "Updated {{.node}}",
	MsgNodeDeleted:  "Deleted {{.node}}",
	MsgChangeUndone: "Undid last change",
	MsgChangeRedone: "Redid last change",
}
