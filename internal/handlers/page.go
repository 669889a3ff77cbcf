package handlers

import (
	"html/template"

	"github.com/imrishuroy/gp-notifier/internal/sightings"
)

const pageTemplateName = "index"

var pageTemplate = template.Must(template.New(pageTemplateName).Parse(`<html>
<head>
    <title>GP Notifier</title>
    <meta http-equiv="refresh" content="10">
    <style>
        body { font-family: Arial; background:#121212; color:#eee; }
        .pet { background:#1e1e1e; margin:10px; padding:15px; border-radius:8px; border:1px solid #333; }
        .pet img { float:right; max-width:120px; }
        code { background:#000; padding:4px; border-radius:5px; display:block; margin-top:5px; }
    </style>
</head>
<body>
    <h1>🔥 GP Notifier - Logs</h1>
{{- range .Pets}}
    <div class="pet">
        {{if .Thumbnail}}<img src="{{.Thumbnail}}">{{end}}
        <h2>{{.Title}}</h2>

        <p><b>Brainrot Name:</b> {{.Name}}</p>
        <p><b>Brainrot Value:</b> {{.Value}}</p>
        <p><b>Player Count:</b> {{.PlayerCount}}</p>

        <p><b>Rarity:</b> {{.Rarity}}</p>
        <p><b>Sell Price:</b> {{.SellPrice}}</p>

        <p><b>Job Id:</b><br><code>{{.JobID}}</code></p>

        <p><b>Join Link:</b><br>{{.JoinLink}}</p>

        <p><b>Join Script:</b><code>{{.JoinScript}}</code></p>

        <small>{{.Footer}}</small>
    </div>
{{- end}}
</body>
</html>
`))

// pageEntry is the display form of one sighting; absent attributes are blank.
type pageEntry struct {
	Title       string
	Thumbnail   string
	Footer      string
	Name        string
	Value       string
	PlayerCount string
	Rarity      string
	SellPrice   string
	JobID       string
	JoinLink    string
	JoinScript  string
}

type pageData struct {
	Pets []pageEntry
}

func newPageData(snap []sightings.Sighting) pageData {
	entries := make([]pageEntry, 0, len(snap))
	for _, s := range snap {
		entries = append(entries, pageEntry{
			Title:       s.Title,
			Thumbnail:   s.ThumbnailURL,
			Footer:      s.FooterText,
			Name:        display(s.Name),
			Value:       display(s.Value),
			PlayerCount: display(s.PlayerCount),
			Rarity:      display(s.Rarity),
			SellPrice:   display(s.SellPrice),
			JobID:       display(s.JobID),
			JoinLink:    display(s.JoinLink),
			JoinScript:  display(s.JoinScript),
		})
	}
	return pageData{Pets: entries}
}

func display(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
