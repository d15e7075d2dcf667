package types

// PageSnapshot is the extracted state of a browser tab at one point in time.
// Every field may be empty; a failed extraction yields the zero value.
type PageSnapshot struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Meta      string `json:"meta"`
	Selection string `json:"selection"`
	Text      string `json:"text"`
}

// IsEmpty reports whether the snapshot carries no information at all.
func (s *PageSnapshot) IsEmpty() bool {
	return s == nil || (s.Title == "" && s.URL == "" && s.Meta == "" && s.Selection == "" && s.Text == "")
}
