// Package config defines the typed configuration documents for the
// extraction and aliasing engines and loads them from YAML with
// environment overrides.
//
// Rule documents use a tagged-union layout: each rule names its kind in a
// discriminator field (method for extraction rules, type for aliasing
// rules) and carries exactly one matching parameter block under a key of
// the same name. A missing or mismatched block is a configuration error
// scoped to that rule; sibling rules are unaffected.
//
//	extraction:
//	  rules:
//	    - rule_id: pump_tags
//	      method: regex
//	      regex:
//	        pattern: '\b(P[-_]?\d{2,4}[A-Z]?)\b'
//
// Load precedence (highest to lowest): environment variables
// (TAGFORGE_*), the YAML document, hardcoded defaults.
package config
