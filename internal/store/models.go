package store

import "time"

const (
	MemosKey     = "memo_app_data"
	TabsKey      = "memo_app_tabs"
	ActiveTabKey = "memo_app_active_tab"
	VisitedKey   = "memo_app_visited"
)

const (
	DefaultTitle   = "Untitled memo"
	titleMaxLength = 30
)

type Memo struct {
	Content      string    `json:"content"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
}

type TabInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
}
