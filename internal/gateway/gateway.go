package gateway

import (
	"context"
	"fmt"
)

// Location is a pin sent to a pilgrim's chat.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Gateway is the outbound messaging collaborator. Every call reports only
// success or failure; error detail is for logs.
type Gateway interface {
	SendText(ctx context.Context, phone, body string) error
	SendImage(ctx context.Context, phone, body string, image []byte, filename string) error
	SendLocation(ctx context.Context, phone string, pin Location) error
	RequestLocation(ctx context.Context, phone, body string) error
}

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.Status, e.Body)
}
