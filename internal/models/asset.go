package models

import (
	"encoding/json"
	"time"
)

const AssetTypeFile = "file"

// Asset is an uploaded source file belonging to a project.
type Asset struct {
	ID        int64           `json:"id" db:"id"`
	ProjectID string          `json:"project_id" db:"project_id"`
	Type      string          `json:"asset_type" db:"asset_type"`
	Name      string          `json:"asset_name" db:"asset_name"`
	Size      int64           `json:"asset_size" db:"asset_size"`
	Config    json.RawMessage `json:"asset_config,omitempty" db:"asset_config"`
	PushedAt  time.Time       `json:"asset_pushed_at" db:"asset_pushed_at"`
}
