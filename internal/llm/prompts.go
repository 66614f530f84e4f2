// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

const translationSystemPrompt = `You translate a user's natural language command into a single JSON object
matching this schema:

{
  "goal": "string",
  "requires_confirmation": bool,
  "steps": [
    {"tool": "string", "action": "string", "args": {...}, "risk": 0-3}
  ]
}

Risk levels: 0=read-only, 1=create, 2=overwrite, 3=destructive.
Respond with only the JSON object, no surrounding prose.`

const reflectionSystemPrompt = `You are evaluating progress toward a goal given an execution history.
Respond with exactly these lines:

ACHIEVED: Yes|No
CONFIDENCE: 0.0-1.0
REASONING: one sentence
NEXT_STEPS: comma-separated list, or NONE if the goal is achieved`
