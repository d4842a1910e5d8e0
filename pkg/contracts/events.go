package contracts

import "time"

type Event struct {
	EventID   string         `json:"event_id"`
	WidgetID  string         `json:"widget_id"`
	ItemID    string         `json:"item_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

const (
	EventItemAdded     = "cart.item_added"
	EventItemRemoved   = "cart.item_removed"
	EventItemIncreased = "cart.item_increased"
	EventItemDecreased = "cart.item_decreased"
	EventStateSynced   = "cart.state_synced"
)
