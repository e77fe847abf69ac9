package models

// ChatRequest is the JSON body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}
