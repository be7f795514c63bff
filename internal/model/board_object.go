package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// BoardObjectRow 보드 오브젝트 영속화 행
type BoardObjectRow struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	BoardID   string         `gorm:"type:uuid;not null;index:idx_board_objects_board" json:"board_id"`
	Kind      string         `gorm:"type:varchar(20);not null" json:"kind"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Rotation  float64        `gorm:"default:0" json:"rotation"`
	Props     datatypes.JSON `gorm:"type:jsonb" json:"props"`
	UpdatedBy string         `gorm:"type:varchar(64)" json:"updated_by"`
	UpdatedAt int64          `gorm:"not null" json:"updated_at"` // unix ms
	Version   int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (BoardObjectRow) TableName() string {
	return "board_objects"
}

// RowFromObject converts a CanvasObject to its persistence row.
func RowFromObject(o *CanvasObject) (*BoardObjectRow, error) {
	props, err := json.Marshal(o.Props)
	if err != nil {
		return nil, fmt.Errorf("marshal props: %w", err)
	}
	return &BoardObjectRow{
		ID:        o.ID,
		BoardID:   o.BoardID,
		Kind:      string(o.Kind),
		X:         o.X,
		Y:         o.Y,
		Width:     o.Width,
		Height:    o.Height,
		Rotation:  o.Rotation,
		Props:     datatypes.JSON(props),
		UpdatedBy: o.UpdatedBy,
		UpdatedAt: o.UpdatedAt,
		Version:   o.Version,
	}, nil
}

// ObjectFromRow converts a persistence row back to a CanvasObject.
func ObjectFromRow(r *BoardObjectRow) (*CanvasObject, error) {
	o := &CanvasObject{
		ID:        r.ID,
		BoardID:   r.BoardID,
		Kind:      Kind(r.Kind),
		X:         r.X,
		Y:         r.Y,
		Width:     r.Width,
		Height:    r.Height,
		Rotation:  r.Rotation,
		UpdatedBy: r.UpdatedBy,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
	if len(r.Props) > 0 {
		if err := json.Unmarshal(r.Props, &o.Props); err != nil {
			return nil, fmt.Errorf("unmarshal props for %s: %w", r.ID, err)
		}
	}
	return o, nil
}
