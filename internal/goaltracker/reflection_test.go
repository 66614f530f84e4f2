// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package goaltracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReflection_FullyFormed(t *testing.T) {
	text := `ACHIEVED: Yes
CONFIDENCE: 0.9
REASONING: All files were listed successfully.
NEXT_STEPS: None`

	status := ParseReflection(text)
	assert.True(t, status.Achieved)
	assert.InDelta(t, 0.9, status.Confidence, 0.0001)
	assert.Equal(t, "All files were listed successfully.", status.Reasoning)
	assert.Empty(t, status.NextSteps)
}

func TestParseReflection_NextSteps(t *testing.T) {
	text := `ACHIEVED: No
CONFIDENCE: 0.4
REASONING: Need more information.
NEXT_STEPS: check disk usage, list processes`

	status := ParseReflection(text)
	assert.False(t, status.Achieved)
	assert.Equal(t, []string{"check disk usage", "list processes"}, status.NextSteps)
}

func TestParseReflection_MissingFieldsDefault(t *testing.T) {
	status := ParseReflection("some unrelated text with no recognized fields")
	assert.False(t, status.Achieved)
	assert.Equal(t, 0.5, status.Confidence)
}

func TestParseReflection_ConfidenceClamped(t *testing.T) {
	status := ParseReflection("CONFIDENCE: 1.7")
	assert.Equal(t, 1.0, status.Confidence)

	status = ParseReflection("CONFIDENCE: -0.3")
	assert.Equal(t, 0.0, status.Confidence)
}

func TestParseReflection_UnparsableConfidenceDefaults(t *testing.T) {
	status := ParseReflection("CONFIDENCE: unsure")
	assert.Equal(t, 0.5, status.Confidence)
}
