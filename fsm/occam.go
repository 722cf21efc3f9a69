package fsm

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/p2pclaw/hive/lib"
)

// keywordPattern matches abstract keywords: words of at least five letters or digits
var keywordPattern = regexp.MustCompile(`\b\w{5,}\b`)

// stopWords are long function words that carry no topic
var stopWords = map[string]struct{}{
	"which": {}, "their": {}, "there": {}, "these": {}, "those": {}, "where": {}, "about": {}, "after": {},
	"before": {}, "during": {}, "through": {}, "between": {}, "under": {}, "above": {}, "below": {},
	"while": {}, "being": {}, "using": {}, "based": {},
}

const (
	maxKeywords      = 20
	validOccamScore  = 60.0
	sectionWeight    = 40.0
	wordWeight       = 20.0
	referenceWeight  = 20.0
	coherenceWeight  = 20.0
	neutralCoherence = 10.0 // an abstract without keywords is neither coherent nor incoherent
)

// OccamScore is the structural quality estimate of a paper
type OccamScore struct {
	Score      float64  `json:"score"` // total / 100, rounded to three decimals
	Valid      bool     `json:"valid"`
	Sections   float64  `json:"sections"`
	Words      float64  `json:"words"`
	References float64  `json:"references"`
	Coherence  float64  `json:"coherence"`
	WordCount  int      `json:"wordCount"`
	RefCount   int      `json:"refCount"`
	Missing    []string `json:"missingSections,omitempty"`
}

// ScorePaper() scores structural completeness, length, citations and abstract/conclusion coherence
func ScorePaper(config lib.ConsensusConfig, content string) OccamScore {
	s := OccamScore{
		WordCount: lib.WordCount(content),
		RefCount:  lib.ReferenceCount(content),
		Missing:   lib.MissingSections(content, config.RequiredSections),
	}
	if required := len(config.RequiredSections); required != 0 {
		s.Sections = sectionWeight * float64(required-len(s.Missing)) / float64(required)
	}
	if config.FinalMinWords > 0 {
		s.Words = wordWeight * min(float64(s.WordCount)/float64(config.FinalMinWords), 1)
	}
	if config.MinReferences > 0 {
		s.References = referenceWeight * min(float64(s.RefCount)/float64(config.MinReferences), 1)
	}
	s.Coherence = coherence(lib.Section(content, "abstract"), lib.Section(content, "conclusion"))
	total := s.Sections + s.Words + s.References + s.Coherence
	s.Score, s.Valid = math.Round(total*10)/1000, total >= validOccamScore
	return s
}

// coherence() is the share of abstract keywords the conclusion mentions
func coherence(abstract, conclusion string) float64 {
	keywords := make([]string, 0)
	dedup := lib.NewDeDuplicator[string]()
	for _, w := range keywordPattern.FindAllString(strings.ToLower(abstract), -1) {
		if _, stop := stopWords[w]; !stop && !dedup.Found(w) {
			keywords = append(keywords, w)
		}
	}
	if len(keywords) == 0 {
		return neutralCoherence
	}
	sort.Strings(keywords)
	keywords = lib.TruncateSlice(keywords, maxKeywords)
	conclusion, hits := strings.ToLower(conclusion), 0
	for _, k := range keywords {
		if strings.Contains(conclusion, k) {
			hits++
		}
	}
	return coherenceWeight * float64(hits) / float64(len(keywords))
}
