// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package derive

import (
	"sort"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// minSeriesPoints is the minimum observations for a measurable slope.
const minSeriesPoints = 2

// seriesSlope fits a least-squares line through the named metric series and
// returns its slope in value units per day. Returns 0 when the series has
// fewer than minSeriesPoints observations.
func seriesSlope(metrics []domain.MetricPoint, name string, now time.Time) float64 {
	points := make([]domain.MetricPoint, 0, len(metrics))
	for _, m := range metrics {
		if m.Name == name {
			points = append(points, m)
		}
	}
	if len(points) < minSeriesPoints {
		return 0
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	// Least-squares slope with x in days before now.
	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := -now.Sub(p.Timestamp).Hours() / 24
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
