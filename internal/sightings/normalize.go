package sightings

import (
	"strings"
	"time"
)

// fieldLabels maps a lower-case label substring to the attribute it fills.
// Every label is checked independently, so one field may fill several attributes.
var fieldLabels = []struct {
	label  string
	target func(s *Sighting) **string
}{
	{"brainrot name", func(s *Sighting) **string { return &s.Name }},
	{"brainrot value", func(s *Sighting) **string { return &s.Value }},
	{"player count", func(s *Sighting) **string { return &s.PlayerCount }},
	{"rarity", func(s *Sighting) **string { return &s.Rarity }},
	{"sell price", func(s *Sighting) **string { return &s.SellPrice }},
	{"job id", func(s *Sighting) **string { return &s.JobID }},
	{"join link", func(s *Sighting) **string { return &s.JoinLink }},
	{"join script", func(s *Sighting) **string { return &s.JoinScript }},
}

// Normalize converts one raw embed into a Sighting stamped with receivedAt.
// It never fails: unknown fields are ignored and missing members keep their zero value.
func Normalize(embed RawEmbed, receivedAt time.Time) Sighting {
	s := Sighting{
		ReceivedAt: receivedAt,
		Title:      embed.Title,
		ColorCode:  embed.Color,
	}
	if embed.Thumbnail != nil {
		s.ThumbnailURL = embed.Thumbnail.URL
	}
	if embed.Footer != nil {
		s.FooterText = embed.Footer.Text
	}

	for _, f := range embed.Fields {
		name := strings.ToLower(f.Name)
		for _, fl := range fieldLabels {
			if strings.Contains(name, fl.label) {
				// later matches overwrite earlier ones
				v := f.Value
				*fl.target(&s) = &v
			}
		}
	}
	return s
}

// NormalizeAll normalizes a batch, stamping every record with the same time.
func NormalizeAll(embeds []RawEmbed, receivedAt time.Time) []Sighting {
	out := make([]Sighting, 0, len(embeds))
	for _, e := range embeds {
		out = append(out, Normalize(e, receivedAt))
	}
	return out
}
