package sightings

import "time"

// DefaultWindow is how long a sighting stays visible after it was received.
const DefaultWindow = 6 * time.Minute

// RawThumbnail is the thumbnail object of an embed.
type RawThumbnail struct {
	URL string `json:"url"`
}

// RawFooter is the footer object of an embed.
type RawFooter struct {
	Text string `json:"text"`
}

// RawField is one name/value pair of an embed.
type RawField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RawEmbed is the loosely structured embed payload posted by the listener.
// Every member is optional.
type RawEmbed struct {
	Title     string        `json:"title,omitempty"`
	Color     int           `json:"color,omitempty"`
	Thumbnail *RawThumbnail `json:"thumbnail,omitempty"`
	Footer    *RawFooter    `json:"footer,omitempty"`
	Fields    []RawField    `json:"fields,omitempty"`
}

// Sighting is the normalized record of one pet sighting.
// Optional attributes are nil when the embed carried no matching field.
type Sighting struct {
	ReceivedAt   time.Time `json:"receivedAt"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	FooterText   string    `json:"footerText"`
	ColorCode    int       `json:"colorCode"`

	Name        *string `json:"name,omitempty"`
	Value       *string `json:"value,omitempty"`
	PlayerCount *string `json:"playerCount,omitempty"`
	Rarity      *string `json:"rarity,omitempty"`
	SellPrice   *string `json:"sellPrice,omitempty"`
	JobID       *string `json:"jobId,omitempty"`
	JoinLink    *string `json:"joinLink,omitempty"`
	JoinScript  *string `json:"joinScript,omitempty"`
}
