// internal/guardrail/rules.go
package guardrail

import "regexp"

// rule is a single detection pattern. Rules are evaluated in registry order
// and every matching rule contributes evidence to the scan result.
type rule struct {
	name    string
	pattern *regexp.Regexp
	level   ThreatLevel
}

// builtinRules is the prompt injection pattern registry. Ordering is part of
// the contract: match evidence is recorded in this order.
var builtinRules = []rule{
	// Direct instruction overrides.
	{
		name:    "ignore_previous",
		pattern: regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|context)`),
		level:   LevelDangerous,
	},
	{
		name:    "new_instructions",
		pattern: regexp.MustCompile(`(?i)(new|updated?|revised?|actual)\s+instructions?:?\s`),
		level:   LevelSuspicious,
	},
	// Role and persona injection.
	{
		name:    "role_injection",
		pattern: regexp.MustCompile(`(?i)you\s+are\s+(now|actually|really)\s+(a|an|the)\s+`),
		level:   LevelDangerous,
	},
	{
		name:    "system_prompt_override",
		pattern: regexp.MustCompile(`(?i)(system\s*prompt|system\s*message|<<\s*SYS|<\|system\|>)`),
		level:   LevelDangerous,
	},
	// Model delimiter injection.
	{
		name:    "delimiter_injection",
		pattern: regexp.MustCompile("(?i)(```\\s*system|<\\|im_start\\|>|<\\|endoftext\\|>|\\[INST\\]|\\[/INST\\])"),
		level:   LevelDangerous,
	},
	// Data exfiltration attempts.
	{
		name:    "exfiltration",
		pattern: regexp.MustCompile(`(?i)(send|transmit|forward|email|post)\s+(this|the|all|my|your)\s+(data|info|conversation|chat|context|history)`),
		level:   LevelDangerous,
	},
	// Urgency markers wrapping override verbs.
	{
		name:    "hidden_instruction",
		pattern: regexp.MustCompile(`(?i)(IMPORTANT|CRITICAL|URGENT)\s*[:\-]\s*(ignore|override|forget|disregard)`),
		level:   LevelDangerous,
	},
	// Jailbreak personas.
	{
		name:    "jailbreak",
		pattern: regexp.MustCompile(`(?i)(do\s+anything\s+now|developer\s+mode|pretend\s+you\s+have\s+no\s+(restrictions?|limitations?|rules?)|you\s+are\s+now\s+DAN)`),
		level:   LevelDangerous,
	},
	// Encoded payloads potentially hiding instructions.
	{
		name:    "encoded_content",
		pattern: regexp.MustCompile(`(?i)(base64|atob|btoa)\s*[(:]`),
		level:   LevelSuspicious,
	},
	// Comments that smuggle instructions past the renderer.
	{
		name:    "formatting_trick",
		pattern: regexp.MustCompile(`(?is)<!--.*?(instruction|ignore|system|prompt).*?-->`),
		level:   LevelDangerous,
	},
}
