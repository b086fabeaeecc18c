// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tasksource feeds candidate action steps into a problem from
// somewhere outside the CLI. A source only proposes descriptions; the
// import command decides which of them become steps.
package tasksource

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Source yields candidate task descriptions. Implementations may block
// on I/O and must honor ctx cancellation.
type Source interface {
	Tasks(ctx context.Context) ([]string, error)
}

// FileSource reads one candidate per line from a plain text file.
// Blank lines and lines starting with "#" are skipped, so the file can
// carry comments.
type FileSource struct {
	Path string
}

// NewFileSource reads candidates from path when Tasks is called.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Tasks(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open task file: %w", err)
	}
	defer f.Close()

	var tasks []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return tasks, nil
}

var _ Source = (*FileSource)(nil)
