// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// errNoJSONArray means the model reply carried no JSON array at all.
var errNoJSONArray = errors.New("no JSON array in reply")

// extractJSONArray pulls the first-to-last bracket span out of a chatty
// model reply ("Here are your KPIs: [...] hope that helps!").
func extractJSONArray(reply string) (string, error) {
	trimmed := strings.TrimSpace(reply)
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start == -1 || end == -1 || end < start {
		return "", errNoJSONArray
	}
	return trimmed[start : end+1], nil
}

func decodeStringArray(reply string) ([]string, error) {
	raw, err := extractJSONArray(reply)
	if err != nil {
		return nil, err
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode string array: %w", err)
	}
	return items, nil
}

func decodeKPISuggestions(reply string) ([]KPISuggestion, error) {
	raw, err := extractJSONArray(reply)
	if err != nil {
		return nil, err
	}
	var items []KPISuggestion
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode kpi suggestions: %w", err)
	}
	return items, nil
}
