package model

import "time"

// TitleEntry is one candidate track title in a per-category pool.
// A title is consumed at most once: Used flips false -> true and never
// back, except via an explicit pool-wide reset.
type TitleEntry struct {
	ID        int64      `json:"id"`
	Category  string     `json:"category"`
	Primary   string     `json:"primary"`   // localized display title
	Secondary string     `json:"secondary"` // translated counterpart
	Keywords  string     `json:"keywords"`  // free-text hints for prompts
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
