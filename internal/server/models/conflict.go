package models

// ConflictType is the closed set of reasons an item write can be rejected.
type ConflictType string

const (
	// ConflictUUID: the uuid belongs to an item the user may not touch.
	ConflictUUID ConflictType = "uuid_conflict"
	// ConflictReadOnly: the user lacks the group permission for this write.
	ConflictReadOnly ConflictType = "readonly_error"
	// ConflictContent: the payload is unacceptable (wrong items key, too large).
	ConflictContent ConflictType = "content_error"
	// ConflictUUIDFormat: the uuid is not a valid uuid.
	ConflictUUIDFormat ConflictType = "uuid_error"
	// ConflictContentType: the content type is unknown.
	ConflictContentType ConflictType = "content_type_error"
	// ConflictSync: the client edited a stale version of the item.
	ConflictSync ConflictType = "sync_conflict"
)

// Conflict is a per-item rejection returned to the client. ServerItem is set
// only for sync conflicts so the client can merge.
type Conflict struct {
	UnsavedItem ItemHash     `json:"unsaved_item"`
	ServerItem  *Item        `json:"server_item,omitempty"`
	Type        ConflictType `json:"type"`
}
