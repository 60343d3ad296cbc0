package models

import "time"

// FlightImport tracks one flight submitted for ingestion into the timetable.
type FlightImport struct {
	ID          int
	FlightNo    string
	Departure   time.Time
	Status      string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type FlightImportItemResponse struct {
	ID          int        `json:"id"`
	FlightNo    string     `json:"flight_no"`
	Departure   string     `json:"departure"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

type Pagination struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
}

type FlightImportResponse struct {
	FlightNo   string                     `json:"flight_no"`
	Imports    []FlightImportItemResponse `json:"imports"`
	Pagination Pagination                 `json:"pagination"`
}
