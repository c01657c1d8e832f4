package api

import (
	"net/url"
	"strings"
)

const (
	IdentifierUUID  = "uuid"
	IdentifierEmail = "email"
)

const (
	ContactsPath      = "/platform/contacts"
	ContactFieldsPath = "/platform/contacts/fields"
	EventsPath        = "/platform/events"
	SegmentationsPath = "/platform/segmentations"
)

// ContactPath addresses a contact by uuid or email: /platform/contacts/email:a@b.com.
func ContactPath(identifier, value string) string {
	return ContactsPath + "/" + contactKey(identifier, value)
}

func ContactTagPath(identifier, value string) string {
	return ContactPath(identifier, value) + "/tag"
}

func ContactFunnelPath(identifier, value string) string {
	return ContactPath(identifier, value) + "/funnels/default"
}

func SegmentationContactsPath(segmentationID string) string {
	return SegmentationsPath + "/" + url.PathEscape(strings.TrimSpace(segmentationID)) + "/contacts"
}

func contactKey(identifier, value string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		identifier = IdentifierUUID
	}
	return identifier + ":" + url.PathEscape(strings.TrimSpace(value))
}
