package models

// Group is a shared vault: a sharing context whose items are encrypted with
// the group's currently specified items key.
type Group struct {
	UUID                  string
	UserUUID              string
	SpecifiedItemsKeyUUID string
	CreatedAtTimestamp    int64
	UpdatedAtTimestamp    int64
}

// GroupUser is a membership of a user in a group.
type GroupUser struct {
	UUID               string
	GroupUUID          string
	UserUUID           string
	Permission         Permission
	CreatedAtTimestamp int64
	UpdatedAtTimestamp int64
}
