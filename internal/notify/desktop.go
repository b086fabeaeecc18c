// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// toastTemplate is the Windows 10+ toast body. PowerShell here-strings
// keep the XML readable; the app id shows up in the Action Center.
const toastTemplate = `
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null

$app_id = 'Headway'
$xml = New-Object Windows.Data.Xml.Dom.XmlDocument
$template = @"
<toast>
    <visual>
        <binding template="ToastText02">
            <text id="1">%s</text>
            <text id="2">%s</text>
        </binding>
    </visual>
</toast>
"@
$xml.LoadXml($template)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier($app_id).Show($xml)
`

// commandRunner abstracts subprocess execution so tests can intercept
// the helper invocation instead of poking the desktop session.
type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

// DesktopNotifier posts OS notifications: osascript on macOS,
// notify-send on Linux, a PowerShell toast on Windows. The message is
// echoed to the console as well, so a terminal-only session still sees
// the reminder even when the desktop helper works.
type DesktopNotifier struct {
	goos string
	run  commandRunner
	echo io.Writer
}

// NewDesktopNotifier builds a notifier for the current platform.
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		goos: runtime.GOOS,
		run:  runCommand,
		echo: os.Stdout,
	}
}

func (d *DesktopNotifier) Notify(ctx context.Context, n Notification) error {
	title := n.Title
	if title == "" {
		title = DefaultTitle
	}

	var channel string
	var err error
	switch d.goos {
	case "darwin":
		channel = "osascript"
		err = d.run(ctx, "osascript", "-e", appleScript(title, n))
	case "linux":
		channel = "notify-send"
		err = d.run(ctx, "notify-send", title, n.Message)
	case "windows":
		channel = "powershell"
		err = d.run(ctx, "powershell", "-Command",
			fmt.Sprintf(toastTemplate, title, n.Message))
	default:
		channel = d.goos
		err = fmt.Errorf("no notification helper for %s", d.goos)
	}

	// Echo like the console notifier so the reminder survives headless
	// sessions and failed helpers alike.
	if d.echo != nil {
		fmt.Fprintf(d.echo, "REMINDER: %s\n", n.Message)
	}

	if err != nil {
		return &NotificationError{Channel: channel, Err: err}
	}
	return nil
}

// Detect picks the notifier for this session: desktop when the
// platform helper binary is on PATH, console otherwise.
func Detect() Notifier {
	var helper string
	switch runtime.GOOS {
	case "darwin":
		helper = "osascript"
	case "linux":
		helper = "notify-send"
	case "windows":
		helper = "powershell"
	default:
		return NewConsoleNotifier()
	}
	if _, err := exec.LookPath(helper); err != nil {
		return NewConsoleNotifier()
	}
	return NewDesktopNotifier()
}

// appleScript builds the osascript body, escaping double quotes so a
// problem title cannot break out of the AppleScript string.
func appleScript(title string, n Notification) string {
	return fmt.Sprintf("display notification %s with title %s subtitle %s",
		appleQuote(n.Message),
		appleQuote(title),
		appleQuote(fmt.Sprintf("Problem #%d", n.ProblemID)))
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

var _ Notifier = (*DesktopNotifier)(nil)
