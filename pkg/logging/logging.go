package logging

import (
	"encoding/json"
	"log"
	"time"
)

type Fields struct {
	Component string `json:"component"`
	WidgetID  string `json:"widget_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

func Log(fields Fields) {
	payload := map[string]any{
		"component": fields.Component,
		"widget_id": fields.WidgetID,
		"item_id":   fields.ItemID,
		"action":    fields.Action,
		"status":    fields.Status,
		"message":   fields.Message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("{\"component\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Component, err.Error())
		return
	}
	log.Print(string(data))
}
