// Package queue defines message payloads exchanged over the message
// broker plus the publisher and consumer for them.  Registration
// publishes a user.registered event; a background consumer turns it
// into a welcome email so mail delivery never blocks the signup
// request.
package queue

// UserRegisteredEvent is published after a successful registration.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"`
}

const registeredQueueName = "user.registered"
