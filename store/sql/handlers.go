package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// activityNamespace turns caller supplied entry ids that are not UUIDs into
// stable UUIDs, so the repository never sees uuid.Nil for a stored row.
var activityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:rdstation:activity"))

func activityHandlers() repository.ModelHandlers[*activityEntryRecord] {
	return repository.ModelHandlers[*activityEntryRecord]{
		NewRecord: func() *activityEntryRecord { return &activityEntryRecord{} },
		GetID: func(record *activityEntryRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return activityUUID(record.ID)
		},
		SetID: func(record *activityEntryRecord, id uuid.UUID) {
			if record != nil {
				record.ID = id.String()
			}
		},
		GetIdentifier: func() string { return "id" },
		GetIdentifierValue: func(record *activityEntryRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func activityUUID(id string) uuid.UUID {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.Nil
	}
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(activityNamespace, []byte(id))
}
