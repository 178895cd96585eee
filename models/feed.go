package models

// FeedState is the accumulated view of one content row.
// Items only grow within a criteria epoch; a criteria change starts over.
type FeedState struct {
	Criteria    Criteria      `json:"criteria"`
	Items       []ContentItem `json:"-"`
	CurrentPage int           `json:"currentPage"` // 0 until the first page lands
	TotalPages  int           `json:"totalPages"`
	IsLoading   bool          `json:"isLoading"`
	// PageCeiling is the last page that will ever be requested; 0 means no ceiling.
	PageCeiling int `json:"pageCeiling,omitempty"`
}

// HasMore reports whether another LoadMore could dispatch a request.
func (s FeedState) HasMore() bool {
	if s.PageCeiling > 0 && s.CurrentPage >= s.PageCeiling {
		return false
	}
	return s.CurrentPage == 0 || s.CurrentPage < s.TotalPages
}

// Clone returns a snapshot that shares no slice storage with s.
func (s FeedState) Clone() FeedState {
	out := s
	out.Items = append([]ContentItem(nil), s.Items...)
	return out
}

// InitialFeedState is the state at the start of every epoch.
func InitialFeedState(c Criteria) FeedState {
	return FeedState{Criteria: c, Items: []ContentItem{}, CurrentPage: 0, TotalPages: 1}
}

// ScrollPosition describes a horizontal scroll container.
type ScrollPosition struct {
	Left        float64 `json:"scrollLeft"`
	ClientWidth float64 `json:"clientWidth"`
	ScrollWidth float64 `json:"scrollWidth"`
}
