// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package transfer

import (
	"fmt"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/store"
)

// Importer is the slice of the store an import needs.
type Importer interface {
	BackupDatabase() (string, error)
	ImportProblem(bundle *store.ImportBundle) (*problem.Problem, error)
}

// ImportResult reports what an import produced.
type ImportResult struct {
	Problem    *problem.Problem
	BackupPath string
}

// Import runs the whole pipeline: parse, validate, back up the
// database, insert. Validation failures surface before the backup so a
// bad document costs nothing; the insert itself is one transaction, so
// a partial problem tree can never land.
func Import(imp Importer, path string, format Format) (*ImportResult, error) {
	doc, err := ReadFile(path, format)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	backupPath, err := imp.BackupDatabase()
	if err != nil {
		return nil, fmt.Errorf("backup before import: %w", err)
	}

	p, err := imp.ImportProblem(doc.bundle())
	if err != nil {
		return nil, err
	}
	return &ImportResult{Problem: p, BackupPath: backupPath}, nil
}
