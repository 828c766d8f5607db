// File: internal/agent/prompt.go
package agent

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// systemPrompt is the fixed instruction set for the planning oracle.
const systemPrompt = `You are an AI browser agent. You control a web browser to accomplish tasks.

You receive:
- The current page URL and title
- The page content (as clean text)
- The task/goal to accomplish

You respond with a JSON object containing:
{
    "thought": "Your reasoning about what to do next",
    "action": "one of: navigate, click, type, submit, scroll, screenshot, extract, done, fail",
    "args": {
        // depends on the action:
        // navigate: {"url": "https://..."}
        // click: {"selector": "css selector"}
        // type: {"selector": "css selector", "text": "text to type"}
        // scroll: {"direction": "down|up", "distance": 500}
        // screenshot: {}
        // extract: {}
        // done: {"summary": "what was accomplished"}
        // fail: {"reason": "why it failed"}
    }
}

Rules:
- Always explain your thinking in "thought"
- Use CSS selectors for click/type (e.g., "textarea[name=q]", "#search-btn", "a[href*=login]")
- Prefer navigating directly via URL when possible (faster, more reliable)
- After typing in a search box, use the "submit" action to press Enter, or click the submit button
- If you see a consent wall or CAPTCHA page, click the continue button first
- If the page doesn't have what you need, navigate somewhere else
- If you're stuck after 3 attempts, use "fail"
- When the goal is achieved, use "done" with a summary
- Be efficient, don't take unnecessary steps
- ONLY respond with valid JSON, nothing else`

// buildUserPrompt assembles the user turn: goal, current page state, and a
// condensed transcript of prior steps.
func buildUserPrompt(goal string, obs Observation, history []*Step, historyResultLimit int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Goal\n%s\n\n", goal)
	fmt.Fprintf(&b, "## Current Page\nURL: %s\nTitle: %s\n\n", obs.URL, obs.Title)
	fmt.Fprintf(&b, "## Page Content\n%s\n\n", obs.Content)

	var transcript strings.Builder
	for _, s := range history {
		if s.Action == "" {
			continue
		}
		fmt.Fprintf(&transcript, "Step %d: %s\n  Action: %s %v\n  Result: %s\n\n",
			s.Number, s.Thought, s.Action, s.Args, truncateRunes(s.Observation, historyResultLimit))
	}
	if transcript.Len() > 0 {
		fmt.Fprintf(&b, "## Previous Steps\n%s\n", transcript.String())
	}

	b.WriteString("## What should I do next? Respond with JSON only.")
	return b.String()
}

// jsonBlockRegex extracts a JSON object from a markdown code block.
var jsonBlockRegex = regexp.MustCompile(fmt.Sprintf("(?s)%s(?:json)?\\s*(.*?)\\s*%s", "```", "```"))

// parseDecision robustly extracts the decision JSON from the oracle's
// response, handling fenced code blocks or raw JSON.
func parseDecision(response string) (*Decision, error) {
	response = strings.TrimSpace(response)
	var jsonStringToParse string

	matches := jsonBlockRegex.FindStringSubmatch(response)
	if len(matches) > 1 {
		jsonStringToParse = strings.TrimSpace(matches[1])
	} else {
		firstBracket := strings.Index(response, "{")
		lastBracket := strings.LastIndex(response, "}")
		if firstBracket != -1 && lastBracket > firstBracket {
			jsonStringToParse = response[firstBracket : lastBracket+1]
		} else {
			jsonStringToParse = response
		}
	}

	if jsonStringToParse == "" {
		return nil, fmt.Errorf("could not find any JSON in the oracle response")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(jsonStringToParse), &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}

	if decision.Action == "" {
		return nil, fmt.Errorf("oracle response missing required 'action' field")
	}
	return &decision, nil
}
