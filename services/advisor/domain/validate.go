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

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance serves the whole process.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCompany runs structural validation on one company record.
//
// Description:
//
//	Checks the validator tags on Company and its nested goals, deals, and
//	metric points, plus cross-field rules the tags cannot express
//	(referential integrity of nested CompanyID fields).
//
// Outputs:
//
//	error - A *ValidationError listing every failure, or nil.
func ValidateCompany(c *Company) error {
	var reasons []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				reasons = append(reasons,
					fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			reasons = append(reasons, err.Error())
		}
	}

	for _, g := range c.Goals {
		if g.CompanyID != c.ID {
			reasons = append(reasons,
				fmt.Sprintf("goal %s references company %s", g.ID, g.CompanyID))
		}
	}
	for _, d := range c.Deals {
		if d.CompanyID != c.ID {
			reasons = append(reasons,
				fmt.Sprintf("deal %s references company %s", d.ID, d.CompanyID))
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	return &ValidationError{CompanyID: c.ID, Reasons: reasons}
}

// ValidateDataset validates the portfolio-level records of a dataset.
//
// Company records are validated per company by the pipeline so one bad
// company cannot abort the portfolio run; this covers only the shared
// records (relationships, calendar events, funds).
func ValidateDataset(d *RawDataset) error {
	if d == nil {
		return ErrNilDataset
	}

	for _, r := range d.Relationships {
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("relationship %s->%s: %w", r.FromID, r.ToID, err)
		}
	}
	for _, e := range d.CalendarEvents {
		if err := validate.Struct(e); err != nil {
			return fmt.Errorf("calendar event %s: %w", e.ID, err)
		}
	}
	for _, f := range d.Funds {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("fund %s: %w", f.ID, err)
		}
	}
	return nil
}
