package warden

import (
	"regexp"
	"sort"
	"strings"

	"github.com/p2pclaw/hive/lib"
)

// Policy is the compiled content policy of the network
type Policy struct {
	phrases   []string            // lowercase, matched as substrings
	words     *regexp.Regexp      // one alternation over every banned word, anchored on word boundaries
	whitelist map[string]struct{} // agent ids that are never inspected
}

// NewPolicy() compiles the banned phrase and word lists
func NewPolicy(config lib.WardenConfig) (*Policy, lib.ErrorI) {
	p := &Policy{whitelist: make(map[string]struct{}, len(config.Whitelist))}
	for _, phrase := range config.BannedPhrases {
		if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" {
			p.phrases = append(p.phrases, phrase)
		}
	}
	quoted := make([]string, 0, len(config.BannedWords))
	for _, word := range config.BannedWords {
		if word = strings.TrimSpace(word); word != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(word)))
		}
	}
	if len(quoted) != 0 {
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, ErrInvalidPolicy(err)
		}
		p.words = re
	}
	for _, id := range config.Whitelist {
		p.whitelist[id] = struct{}{}
	}
	return p, nil
}

// Whitelisted() returns true if the agent bypasses inspection
func (p *Policy) Whitelisted(agentID string) bool {
	_, ok := p.whitelist[agentID]
	return ok
}

// Match() returns the sorted distinct policy terms found in the text
func (p *Policy) Match(text string) (matched []string) {
	lower, dedup := strings.ToLower(text), lib.NewDeDuplicator[string]()
	for _, phrase := range p.phrases {
		if strings.Contains(lower, phrase) && !dedup.Found(phrase) {
			matched = append(matched, phrase)
		}
	}
	if p.words != nil {
		for _, w := range p.words.FindAllString(lower, -1) {
			if !dedup.Found(w) {
				matched = append(matched, w)
			}
		}
	}
	sort.Strings(matched)
	return
}
