package paygate

import (
	"fmt"
	"regexp"

	"github.com/tachi-labs/paygate/schema"
)

type Classifier struct {
	patterns []*regexp.Regexp
}

// NewClassifier extends the built-in table with extra case-insensitive expressions.
func NewClassifier(extra ...string) (*Classifier, error) {
	patterns := make([]*regexp.Regexp, 0, len(schema.CrawlerPatterns)+len(extra))
	patterns = append(patterns, schema.CrawlerPatterns...)
	for _, expr := range extra {
		re, err := regexp.Compile(`(?i)` + expr)
		if err != nil {
			return nil, fmt.Errorf("invalid crawler pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}
	return &Classifier{patterns: patterns}, nil
}

func (c *Classifier) IsCrawler(ua string) bool {
	if ua == "" {
		return false
	}
	for _, re := range c.patterns {
		if re.MatchString(ua) {
			return true
		}
	}
	return false
}
