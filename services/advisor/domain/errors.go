// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for raw input handling.
var (
	// ErrInvalidEvent indicates a lifecycle event failed schema validation.
	ErrInvalidEvent = errors.New("invalid lifecycle event")

	// ErrInvalidCompany indicates a company record failed validation.
	ErrInvalidCompany = errors.New("invalid company record")

	// ErrNilDataset indicates a nil dataset was passed to the pipeline.
	ErrNilDataset = errors.New("dataset must not be nil")
)

// ValidationError aggregates the validation failures for one company.
//
// A ValidationError aborts that company's computation only; the rest of the
// portfolio run proceeds.
type ValidationError struct {
	CompanyID string
	Reasons   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("company %s: %d validation failure(s): %v",
		e.CompanyID, len(e.Reasons), e.Reasons)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidCompany }
