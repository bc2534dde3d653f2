package domain

// CollectedItem is a single entry produced by a news source page.
// It is never persisted as is; storage turns it into an Article.
type CollectedItem struct {
	Link      string
	Title     string
	Text      string
	Timestamp int64
}

// Article is a stored item. IDs are assigned by storage and strictly increase in insertion order.
type Article struct {
	ID        int64  `json:"id" db:"id"`
	Source    string `json:"source" db:"source"`
	Link      string `json:"link" db:"link"`
	Title     string `json:"title" db:"title"`
	Text      string `json:"text" db:"text"`
	Timestamp int64  `json:"timestamp" db:"ts"`
}

// ArticlesPage is a batch of articles plus the bound id readers pass back on the next call.
type ArticlesPage struct {
	Articles []Article `json:"articles"`
	BoundID  int64     `json:"boundId"`
}

// NoBoundID asks readers to start from the beginning (GetAfter) or from the newest article (GetPage).
const NoBoundID int64 = -1

// Article returns the storage form of the item for the given source.
func (c CollectedItem) Article(source string) Article {
	return Article{
		Source:    source,
		Link:      c.Link,
		Title:     c.Title,
		Text:      c.Text,
		Timestamp: c.Timestamp,
	}
}
