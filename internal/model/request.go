package model

// SearchRequest is the query contract for GET /api/search.
type SearchRequest struct {
	Song   string `query:"song" validate:"required"`
	Artist string `query:"artist"`
}

// SearchResponse bundles track metadata with its filtered genre tags.
type SearchResponse struct {
	Track      *Track   `json:"track"`
	Tags       []Tag    `json:"tags"`
	TagSources []string `json:"tagSources,omitempty"`
}

// EnqueueRequest is the body contract for POST /api/queue.
type EnqueueRequest struct {
	Ref  string `json:"ref" validate:"required"`
	Kind string `json:"kind" validate:"omitempty,oneof=track album playlist"`
}

// EnqueueResponse reports how many jobs an enqueue request created.
type EnqueueResponse struct {
	Enqueued int    `json:"enqueued"`
	Source   string `json:"source"`
	Jobs     []Job  `json:"jobs,omitempty"`
}
