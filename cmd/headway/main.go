// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Headway is a terminal problem-solving tracker: describe a challenge,
// get measurable KPIs and an action plan, log progress, and let the
// reminder daemon nudge you when an update is due.
package main

import (
	"os"
)

func main() {
	err := rootCmd.Execute()
	closeAppLogger()
	if err != nil {
		os.Exit(1)
	}
}
