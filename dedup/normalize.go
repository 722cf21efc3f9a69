package dedup

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/lib/crypto"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const minSignificantRunes = 4 // words of 3 runes or fewer don't count toward similarity

var (
	// '[credit: x]', '[v2]'
	bracketedCredit = regexp.MustCompile(`\[[^\]]*\]`)
	// '(by x)', '(credit x)', '(courtesy of x)'
	parentheticalCredit = regexp.MustCompile(`(?i)\(\s*(?:by|credit|credits|courtesy|via|authors?)\b[^)]*\)`)
	// 'Title - by Agent Smith', 'Title | by x', 'Title, by x'
	separatedByline = regexp.MustCompile(`(?i)\s*[-–—,:|/]+\s*by\s+\S+(?:\s+\S+){0,2}\s*$`)
	// 'Title by agent-42', 'Title by Node_7'
	agentByline = regexp.MustCompile(`(?i)\s+by\s+\S*[\d_-]\S*\s*$`)
	// metadata header lines that change between resubmissions of the same work
	volatileLine = regexp.MustCompile(`(?im)^[ \t*_#>-]*(?:authors?|date|investigation|agent(?:\s*id)?|id|paper\s*id|submitted\s*by|published|timestamp)[*_]*\s*[:=].*$`)
	bylineLine   = regexp.MustCompile(`(?im)^[ \t*_]*by[ \t]+\S+(?:[ \t]+\S+){0,4}[ \t*_]*$`)
	nonWord      = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// foldUnicode() decomposes and strips combining marks so 'Café' and 'Cafe' compare equal
func foldUnicode(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeTitle() removes attribution, punctuation, case and accents from a title
func NormalizeTitle(title string) string {
	t := bracketedCredit.ReplaceAllString(title, " ")
	t = parentheticalCredit.ReplaceAllString(t, " ")
	t = separatedByline.ReplaceAllString(t, "")
	t = agentByline.ReplaceAllString(t, "")
	t = strings.ToLower(foldUnicode(t))
	t = nonWord.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

// SignificantWords() returns the set of normalized title words longer than 3 runes
func SignificantWords(normalized string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if utf8.RuneCountInString(w) >= minSignificantRunes {
			words[w] = struct{}{}
		}
	}
	return words
}

// Jaccard() returns |a ∩ b| / |a ∪ b|; two empty sets are not similar
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	// iterate the smaller set
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

// TitleSimilarity() compares two raw titles; identical normalized titles are always 1.0
func TitleSimilarity(a, b string) float64 {
	return normalizedSimilarity(NormalizeTitle(a), NormalizeTitle(b))
}

// normalizedSimilarity() compares two normalized titles
func normalizedSimilarity(a, b string) float64 {
	if a != "" && a == b {
		return 1
	}
	return Jaccard(SignificantWords(a), SignificantWords(b))
}

// ContentHash() fingerprints the content without bylines and volatile metadata
func ContentHash(content string) string {
	c := volatileLine.ReplaceAllString(content, "")
	c = bylineLine.ReplaceAllString(c, "")
	c = strings.ToLower(foldUnicode(c))
	return crypto.HashString([]byte(strings.Join(strings.Fields(c), " ")))
}

// AbstractHash() fingerprints the abstract section; empty if the document has none
func AbstractHash(content string) string {
	abstract := lib.Section(content, "abstract")
	if abstract == "" {
		return ""
	}
	abstract = strings.ToLower(foldUnicode(abstract))
	return crypto.HashString([]byte(strings.Join(strings.Fields(abstract), " ")))
}

// Fingerprint is every derived key the registry indexes a paper by
type Fingerprint struct {
	NormalizedTitle string
	ContentHash     string
	AbstractHash    string
	WordCount       int
}

// NewFingerprint() derives the fingerprint of a submission
func NewFingerprint(title, content string) Fingerprint {
	return Fingerprint{
		NormalizedTitle: NormalizeTitle(title),
		ContentHash:     ContentHash(content),
		AbstractHash:    AbstractHash(content),
		WordCount:       lib.WordCount(content),
	}
}

// FingerprintOf() reads the fingerprint stored on a paper, deriving whatever is missing
func FingerprintOf(p *lib.Paper) Fingerprint {
	f := Fingerprint{
		NormalizedTitle: p.NormalizedTitle,
		ContentHash:     p.ContentHash,
		AbstractHash:    p.AbstractHash,
		WordCount:       p.WordCount,
	}
	if f.NormalizedTitle == "" {
		f.NormalizedTitle = NormalizeTitle(p.Title)
	}
	if p.Content != "" {
		if f.ContentHash == "" {
			f.ContentHash = ContentHash(p.Content)
		}
		if f.AbstractHash == "" {
			f.AbstractHash = AbstractHash(p.Content)
		}
		if f.WordCount == 0 {
			f.WordCount = lib.WordCount(p.Content)
		}
	}
	return f
}
