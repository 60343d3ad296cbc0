package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"flight_search/internal/models"
)

// FlightMessage carries one timetable flight to the ingestion consumer.
// ImportID links it to its flight_imports row; zero means the flight was
// published directly and has no import row to update.
type FlightMessage struct {
	ImportID int           `json:"import_id,omitempty"`
	Flight   models.Flight `json:"flight"`
}

func NewFlightMessage(importID int, f *models.Flight) *FlightMessage {
	return &FlightMessage{
		ImportID: importID,
		Flight:   *f,
	}
}

// Key partitions messages by flight number.
func (m *FlightMessage) Key() string { return m.Flight.FlightNo }

// DecodeFlightMessage parses and checks a message payload.
func DecodeFlightMessage(payload []byte) (*FlightMessage, error) {
	var msg FlightMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal flight message: %w", err)
	}
	if msg.ImportID < 0 {
		return nil, errors.New("negative import_id")
	}
	if msg.Flight.FlightNo == "" {
		return nil, errors.New("flight_no is empty")
	}
	return &msg, nil
}
