package domain

import "encoding/json"

// Upstream payload shapes. The catalog API omits most fields freely, so
// everything optional is a pointer or zero-value-safe.

// Artwork is the upstream artwork descriptor. URL is a template containing
// {w} and {h} placeholders.
type Artwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Preview is a short playable excerpt of a song.
type Preview struct {
	URL string `json:"url"`
}

// Attributes carries the per-resource fields the gateway normalizes from.
type Attributes struct {
	Name                 string   `json:"name,omitempty"`
	ArtistName           string   `json:"artistName,omitempty"`
	AlbumName            string   `json:"albumName,omitempty"`
	ComposerName         string   `json:"composerName,omitempty"`
	GenreNames           []string `json:"genreNames,omitempty"`
	ReleaseDate          string   `json:"releaseDate,omitempty"`
	URL                  string   `json:"url,omitempty"`
	DurationInMillis     *int64   `json:"durationInMillis,omitempty"`
	TrackNumber          int      `json:"trackNumber,omitempty"`
	TrackCount           int      `json:"trackCount,omitempty"`
	IsAppleDigitalMaster bool     `json:"isAppleDigitalMaster,omitempty"`
	Artwork              *Artwork `json:"artwork,omitempty"`
	Previews             []Preview `json:"previews,omitempty"`
}

// Resource is one catalog or library resource (song, album, ...).
type Resource struct {
	ID            string         `json:"id"`
	Type          string         `json:"type,omitempty"`
	Attributes    Attributes     `json:"attributes"`
	Relationships *Relationships `json:"relationships,omitempty"`
}

// Relationships holds the nested resources the gateway cares about.
type Relationships struct {
	Tracks *ResourceList `json:"tracks,omitempty"`
}

// ResourceList is the {data: [...]} wrapper the API nests everywhere.
type ResourceList struct {
	Data []Resource `json:"data"`
}

// Page is a paged listing response with opaque pagination cursors.
type Page struct {
	Data []Resource      `json:"data"`
	Next string          `json:"next,omitempty"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

// SearchEnvelope wraps catalog search results per requested type.
type SearchEnvelope struct {
	Results struct {
		Songs  *ResourceList `json:"songs,omitempty"`
		Albums *ResourceList `json:"albums,omitempty"`
	} `json:"results"`
}

// Normalized output shapes. Nil pointers serialize as JSON null, matching
// the suppression rules (internal "i." ids lose their canonical url, absent
// durations stay null).

// Song is the normalized single-song lookup result.
type Song struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ArtistName   string          `json:"artistName"`
	AlbumName    string          `json:"albumName"`
	ComposerName string          `json:"composerName"`
	GenreNames   []string        `json:"genreNames"`
	ReleaseDate  *string         `json:"releaseDate"`
	ReleaseYear  *string         `json:"releaseYear"`
	URL          *string         `json:"url"`
	PreviewURL   *string         `json:"previewUrl"`
	Duration     *string         `json:"duration"`
	Image        *string         `json:"image"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// AlbumTrack is one normalized entry of an album's track list.
type AlbumTrack struct {
	ID          string  `json:"id"`
	TrackNumber int     `json:"trackNumber"`
	Name        string  `json:"name"`
	Duration    *string `json:"duration"`
	URL         *string `json:"url"`
}

// Album is the normalized album lookup result. Duration is the summed
// track length in human form ("1 hour, 12 minutes"); IsDigitalMaster is
// true when any track reports the master flag.
type Album struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ArtistName      string          `json:"artistName"`
	GenreNames      []string        `json:"genreNames"`
	ReleaseDate     *string         `json:"releaseDate"`
	ReleaseDateText *string         `json:"releaseDateText"`
	ReleaseYear     *string         `json:"releaseYear"`
	URL             *string         `json:"url"`
	Duration        *string         `json:"duration"`
	IsDigitalMaster bool            `json:"isDigitalMaster"`
	Tracks          []AlbumTrack    `json:"tracks"`
	Image           *string         `json:"image"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// SearchResult is the uniform row shape for both song and album hits.
type SearchResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Info  *string `json:"info"`
	Image *string `json:"image"`
	Link  *string `json:"link"`
	Kind  string  `json:"kind"`
}

// RecentItem is one normalized recently-played track for site display.
type RecentItem struct {
	ID          *string `json:"id"`
	Name        string  `json:"name"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Duration    *string `json:"duration"`
	ReleaseDate *string `json:"releaseDate"`
	URL         *string `json:"url"`
	Image       *string `json:"image"`
}

// RecentPayload is the cached result of the site-wide recently-played
// lookup. Error is non-nil for negative-cache entries so callers can tell
// an empty failure from an empty success.
type RecentPayload struct {
	Items []RecentItem `json:"items"`
	Error *string      `json:"error"`
}
