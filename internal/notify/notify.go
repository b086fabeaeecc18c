// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notify delivers reminder notifications. Delivery is best
// effort: a notifier returning an error means the reminder was not
// seen and the scheduler should retry it, never that the process is
// in trouble.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DefaultTitle heads every reminder notification.
const DefaultTitle = "Headway Reminder"

// Notification is one message to put in front of the user.
type Notification struct {
	Title     string
	Message   string
	ProblemID uint
}

// Notifier delivers a notification. Implementations must be safe for
// use from the scheduler goroutine.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationError wraps a delivery failure with the channel that
// failed. The scheduler logs it and retries at the next tick.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// ConsoleNotifier prints reminders to a terminal. It is the fallback
// when no desktop notification helper exists and the channel of choice
// for the foreground daemon.
type ConsoleNotifier struct {
	Out io.Writer
}

// NewConsoleNotifier writes to stdout.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{Out: os.Stdout}
}

func (c *ConsoleNotifier) Notify(_ context.Context, n Notification) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintf(out, "REMINDER: %s\n", n.Message); err != nil {
		return &NotificationError{Channel: "console", Err: err}
	}
	return nil
}

var _ Notifier = (*ConsoleNotifier)(nil)
