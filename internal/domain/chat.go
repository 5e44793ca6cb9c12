package domain

import "time"

// ChatRequest is the decoded body of an inbound chat call.
type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// Reply is the normalized assistant answer returned to the caller.
type Reply struct {
	Response  string
	Timestamp time.Time
}
