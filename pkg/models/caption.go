package models

import "time"

// CaptionJob asks the worker to fetch a caption track for an entry
type CaptionJob struct {
	EntryID     string    `json:"entry_id"`
	OwnerID     string    `json:"owner_id"`
	SourceURL   string    `json:"source_url"`
	RequestedAt time.Time `json:"requested_at"`
}

// Caption is a fetched caption track flattened to plain text
type Caption struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}
