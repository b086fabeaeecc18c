// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Table names are part of the on-disk contract; renaming one silently
// orphans existing user databases.
func TestTableNames(t *testing.T) {
	assert.Equal(t, "problems", Problem{}.TableName())
	assert.Equal(t, "kpis", KPI{}.TableName())
	assert.Equal(t, "action_steps", ActionStep{}.TableName())
	assert.Equal(t, "progress_logs", ProgressLog{}.TableName())
	assert.Equal(t, "reminders", Reminder{}.TableName())
}

func TestProblem_IsCompleted(t *testing.T) {
	p := &Problem{Status: StatusActive}
	assert.False(t, p.IsCompleted())

	p.Status = StatusCompleted
	assert.True(t, p.IsCompleted())
}

func TestKPI_HasTarget(t *testing.T) {
	noTarget := &KPI{}
	assert.False(t, noTarget.HasTarget(), "nil target means open-ended")

	zero := 0.0
	zeroTarget := &KPI{TargetValue: &zero}
	assert.False(t, zeroTarget.HasTarget(), "zero target is treated as open-ended")

	eight := 8.0
	withTarget := &KPI{TargetValue: &eight}
	assert.True(t, withTarget.HasTarget())
}
