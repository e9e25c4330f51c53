// Package s2 provides a client for the Semantic Scholar Graph API paper search.
package s2

// Paper is a search hit from the Graph API.
type Paper struct {
	PaperID string   `json:"paperId"`
	Title   string   `json:"title"`
	Authors []Author `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Venue   string   `json:"venue,omitempty"`
}

// Author is a paper author as returned by the Graph API.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// SearchResponse is the body of /paper/search.
type SearchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Next   int     `json:"next,omitempty"`
	Data   []Paper `json:"data"`
}

// errorResponse is the body the API sends with 4xx statuses.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
