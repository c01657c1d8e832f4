package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:rdstation_activity_entries,alias:rae"`

	ID          string         `bun:"id,pk"`
	ExecutionID string         `bun:"execution_id,notnull"`
	Resource    string         `bun:"resource,notnull"`
	Operation   string         `bun:"operation,notnull"`
	ItemIndex   int            `bun:"item_index,notnull"`
	Status      string         `bun:"status,notnull"`
	Error       string         `bun:"error,notnull"`
	Description string         `bun:"description,notnull"`
	OutputCount int            `bun:"output_count,notnull"`
	DurationMS  int64          `bun:"duration_ms,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
