// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package advisor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilDataset indicates Compute was called with a nil dataset.
	ErrNilDataset = errors.New("dataset is nil")

	// ErrNoCompanies indicates the dataset has no valid companies to
	// process.
	ErrNoCompanies = errors.New("no valid companies in dataset")
)

// StoredDerivationError indicates the raw dataset carries fields that
// are outputs of this pipeline. Such datasets are rejected outright
// rather than trusted.
type StoredDerivationError struct {
	// Paths locates each forbidden field inside the dataset.
	Paths []string
}

func (e *StoredDerivationError) Error() string {
	return fmt.Sprintf("dataset contains %d stored derivation(s): %s",
		len(e.Paths), strings.Join(e.Paths, ", "))
}
