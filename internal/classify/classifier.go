// Package classify decides whether a song belongs to the worship category
// based on its genre tags.
package classify

import (
	"strings"

	"github.com/ItsAltus/Worshipify/internal/model"
)

// MethodLabel is stored on accepted songs so later maintenance can tell
// which decision rule admitted them.
const MethodLabel = "lastfm-tag-keyword"

// defaultKeywords are substring markers: a song is in category when any
// tag name contains any of these.
var defaultKeywords = []string{
	"worship",
	"christian",
	"gospel",
	"praise",
	"hymn",
	"ccm",
	"religious",
	"jesus",
}

type Classifier struct {
	keywords []string
}

func New() *Classifier {
	return NewWithKeywords(defaultKeywords)
}

func NewWithKeywords(keywords []string) *Classifier {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	return &Classifier{keywords: normalized}
}

// Classify reports whether the tag list marks the song as worship music
// and, if so, which keyword matched. An empty tag list is simply not in
// category — a tag service that returned nothing usable is an expected
// outcome, not an error.
func (c *Classifier) Classify(tags []model.Tag) (bool, string) {
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		for _, keyword := range c.keywords {
			if strings.Contains(name, keyword) {
				return true, keyword
			}
		}
	}
	return false, ""
}
