package models

// ContentType tags the kind of payload an item carries. The server never
// reads the payload, the tag only drives validation.
type ContentType string

const (
	ContentTypeNote            ContentType = "Note"
	ContentTypeTag             ContentType = "Tag"
	ContentTypeSmartView       ContentType = "SN|SmartTag"
	ContentTypeComponent       ContentType = "SN|Component"
	ContentTypeTheme           ContentType = "SN|Theme"
	ContentTypeFile            ContentType = "SN|File"
	ContentTypeItemsKey        ContentType = "SN|ItemsKey"
	ContentTypeSharedItemsKey  ContentType = "SN|SharedItemsKey"
	ContentTypeUserPreferences ContentType = "SN|UserPreferences"
	ContentTypeExtension       ContentType = "SF|Extension"
	ContentTypeEncryptedItem   ContentType = "SN|EncryptedStorage"
)

var knownContentTypes = map[ContentType]struct{}{
	ContentTypeNote:            {},
	ContentTypeTag:             {},
	ContentTypeSmartView:       {},
	ContentTypeComponent:       {},
	ContentTypeTheme:           {},
	ContentTypeFile:            {},
	ContentTypeItemsKey:        {},
	ContentTypeSharedItemsKey:  {},
	ContentTypeUserPreferences: {},
	ContentTypeExtension:       {},
	ContentTypeEncryptedItem:   {},
}

// Known reports whether c is a content type the server accepts.
func (c ContentType) Known() bool {
	_, ok := knownContentTypes[c]
	return ok
}

// IsSharedItemsKey reports whether c is the key-distribution item type of a
// group. Those items are not themselves encrypted by a group items key.
func (c ContentType) IsSharedItemsKey() bool {
	return c == ContentTypeSharedItemsKey
}
