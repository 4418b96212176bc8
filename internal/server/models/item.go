package models

import "time"

// ItemHash is an item write as submitted by a client. It is transient and
// only ever mapped into an Item.
//
// Optional group and key references are pointers: nil means the client did
// not send the field, which the ownership rules treat differently from an
// empty value.
type ItemHash struct {
	UUID               string      `json:"uuid"`
	UserUUID           string      `json:"user_uuid,omitempty"`
	GroupUUID          *string     `json:"group_uuid,omitempty"`
	ContentType        ContentType `json:"content_type"`
	ItemsKeyID         *string     `json:"items_key_id,omitempty"`
	Deleted            bool        `json:"deleted"`
	Content            string      `json:"content,omitempty"`
	EncItemKey         string      `json:"enc_item_key,omitempty"`
	AuthHash           string      `json:"auth_hash,omitempty"`
	DuplicateOf        *string     `json:"duplicate_of,omitempty"`
	CreatedAtTimestamp int64       `json:"created_at_timestamp,omitempty"`
	UpdatedAtTimestamp int64       `json:"updated_at_timestamp,omitempty"`
}

// HasGroup reports whether the hash targets a group.
func (h *ItemHash) HasGroup() bool {
	return h.GroupUUID != nil && *h.GroupUUID != ""
}

// ContentSize is the number of payload bytes the item occupies.
func (h *ItemHash) ContentSize() int64 {
	return int64(len(h.Content))
}

// Item is the stored state of an item.
type Item struct {
	UUID               string      `json:"uuid"`
	UserUUID           string      `json:"user_uuid"`
	GroupUUID          *string     `json:"group_uuid,omitempty"`
	ContentType        ContentType `json:"content_type"`
	ItemsKeyID         *string     `json:"items_key_id,omitempty"`
	Content            string      `json:"content,omitempty"`
	ContentSize        int64       `json:"content_size"`
	EncItemKey         string      `json:"enc_item_key,omitempty"`
	AuthHash           string      `json:"auth_hash,omitempty"`
	DuplicateOf        *string     `json:"duplicate_of,omitempty"`
	Deleted            bool        `json:"deleted"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	CreatedAtTimestamp int64       `json:"created_at_timestamp"`
	UpdatedAtTimestamp int64       `json:"updated_at_timestamp"`
}

// HasGroup reports whether the item is shared into a group.
func (i *Item) HasGroup() bool {
	return i.GroupUUID != nil && *i.GroupUUID != ""
}

// IntegrityPayload is the per-item projection clients use to locate
// divergent items once the integrity hash mismatches.
type IntegrityPayload struct {
	UUID               string      `json:"uuid"`
	UpdatedAtTimestamp int64       `json:"updated_at_timestamp"`
	ContentType        ContentType `json:"content_type"`
}
