package musickit

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/scottboms/musickit-gateway/domain"
)

// Artwork sizes substituted into the upstream {w}x{h} template URLs.
const (
	artworkSizeDetail = 600
	artworkSizeRecent = 240
	artworkSizeThumb  = 60
)

// internalIDPrefix marks library-internal catalog ids whose canonical URL
// must be suppressed.
const internalIDPrefix = "i."

// FormatMMSS renders milliseconds as "m:ss", flooring to the whole second.
// Nil input yields nil.
func FormatMMSS(ms *int64) *string {
	if ms == nil {
		return nil
	}

	totalSeconds := *ms / 1000
	out := fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
	return &out
}

// FormatHuman renders milliseconds as rounded human text ("1 hour, 12
// minutes"). Seconds >= 30 round up into minutes, carrying into hours;
// seconds are shown only when minutes round to zero. An input rounding to
// zero yields "0 minutes".
func FormatHuman(ms *int64) *string {
	if ms == nil {
		return nil
	}

	totalSeconds := int64(math.Round(float64(*ms) / 1000))
	h := totalSeconds / 3600
	rem := totalSeconds % 3600
	m := rem / 60
	s := rem % 60

	if s >= 30 {
		m++
		s = 0
	}
	if m >= 60 {
		h += m / 60
		m %= 60
	}

	parts := []string{}
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	if m == 0 && s > 0 {
		parts = append(parts, plural(s, "second"))
	}

	if len(parts) == 0 {
		out := "0 minutes"
		return &out
	}

	out := strings.Join(parts, ", ")
	return &out
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// HumanDate renders an upstream release date in long form: full dates as
// "January 2, 2006", year-months as "January 2006", bare years unchanged.
// Unrecognized input passes through as-is.
func HumanDate(iso *string) *string {
	if iso == nil || *iso == "" {
		return nil
	}

	if t, err := time.Parse("2006-01-02", *iso); err == nil {
		out := t.Format("January 2, 2006")
		return &out
	}
	if t, err := time.Parse("2006-01", *iso); err == nil {
		out := t.Format("January 2006")
		return &out
	}

	return iso
}

// FirstGenre returns the first genre name, if any.
func FirstGenre(genres []string) *string {
	if len(genres) == 0 {
		return nil
	}
	return &genres[0]
}

// releaseYear extracts the year from a release date in any of the upstream
// forms (yyyy-mm-dd, yyyy-mm, yyyy).
func releaseYear(date string) *string {
	if date == "" {
		return nil
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			out := t.Format("2006")
			return &out
		}
	}
	return nil
}

// artworkURL substitutes a fixed size into the artwork template URL.
func artworkURL(art *domain.Artwork, size int) *string {
	if art == nil || art.URL == "" {
		return nil
	}

	s := fmt.Sprintf("%d", size)
	out := strings.NewReplacer("{w}", s, "{h}", s).Replace(art.URL)
	return &out
}

// canonicalURL returns the resource URL, suppressed (nil) for internal-only
// ids regardless of what the upstream reported.
func canonicalURL(id, url string) *string {
	if strings.HasPrefix(id, internalIDPrefix) || url == "" {
		return nil
	}
	return &url
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizeSong flattens a catalog song resource for component views.
func normalizeSong(it domain.Resource) *domain.Song {
	a := it.Attributes

	var preview *string
	if len(a.Previews) > 0 && a.Previews[0].URL != "" {
		preview = &a.Previews[0].URL
	}

	genres := a.GenreNames
	if genres == nil {
		genres = []string{}
	}

	return &domain.Song{
		ID:           it.ID,
		Name:         a.Name,
		ArtistName:   a.ArtistName,
		AlbumName:    a.AlbumName,
		ComposerName: a.ComposerName,
		GenreNames:   genres,
		ReleaseDate:  optional(a.ReleaseDate),
		ReleaseYear:  releaseYear(a.ReleaseDate),
		URL:          canonicalURL(it.ID, a.URL),
		PreviewURL:   preview,
		Duration:     FormatMMSS(a.DurationInMillis),
		Image:        artworkURL(a.Artwork, artworkSizeDetail),
	}
}

// normalizeAlbum flattens a catalog album resource, including its track
// list. The album is a digital master when any track reports the flag; the
// total duration sums the track lengths.
func normalizeAlbum(it domain.Resource) *domain.Album {
	a := it.Attributes

	genres := a.GenreNames
	if genres == nil {
		genres = []string{}
	}

	tracks := []domain.AlbumTrack{}
	isMaster := false
	var totalMillis int64
	var haveDuration bool

	if it.Relationships != nil && it.Relationships.Tracks != nil {
		for _, tr := range it.Relationships.Tracks.Data {
			ta := tr.Attributes
			if ta.IsAppleDigitalMaster {
				isMaster = true
			}
			if ta.DurationInMillis != nil {
				totalMillis += *ta.DurationInMillis
				haveDuration = true
			}

			tracks = append(tracks, domain.AlbumTrack{
				ID:          tr.ID,
				TrackNumber: ta.TrackNumber,
				Name:        ta.Name,
				Duration:    FormatMMSS(ta.DurationInMillis),
				URL:         canonicalURL(tr.ID, ta.URL),
			})
		}
	}

	var total *string
	if haveDuration {
		total = FormatHuman(&totalMillis)
	} else if a.DurationInMillis != nil {
		total = FormatHuman(a.DurationInMillis)
	}

	return &domain.Album{
		ID:              it.ID,
		Name:            a.Name,
		ArtistName:      a.ArtistName,
		GenreNames:      genres,
		ReleaseDate:     optional(a.ReleaseDate),
		ReleaseDateText: HumanDate(optional(a.ReleaseDate)),
		ReleaseYear:     releaseYear(a.ReleaseDate),
		URL:             canonicalURL(it.ID, a.URL),
		Duration:        total,
		IsDigitalMaster: isMaster,
		Tracks:          tracks,
		Image:           artworkURL(a.Artwork, artworkSizeDetail),
	}
}

// normalizeSearchSong maps a song hit onto the uniform search row.
func normalizeSearchSong(it domain.Resource) domain.SearchResult {
	a := it.Attributes
	name := a.Name
	if name == "" {
		name = "Untitled"
	}

	link := "applemusic/song/" + it.ID
	return domain.SearchResult{
		ID:    it.ID,
		Text:  name + " - " + a.ArtistName,
		Info:  releaseYear(a.ReleaseDate),
		Image: artworkURL(a.Artwork, artworkSizeThumb),
		Link:  &link,
		Kind:  "songs",
	}
}

// normalizeSearchAlbum maps an album hit onto the uniform search row. The
// link points at the canonical album URL.
func normalizeSearchAlbum(it domain.Resource) domain.SearchResult {
	a := it.Attributes
	name := a.Name
	if name == "" {
		name = "Untitled"
	}

	return domain.SearchResult{
		ID:    it.ID,
		Text:  name + " - " + a.ArtistName,
		Info:  releaseYear(a.ReleaseDate),
		Image: artworkURL(a.Artwork, artworkSizeThumb),
		Link:  optional(a.URL),
		Kind:  "albums",
	}
}

// normalizeRecentItem flattens a recently-played track for site display.
func normalizeRecentItem(it domain.Resource) domain.RecentItem {
	a := it.Attributes

	return domain.RecentItem{
		ID:          optional(it.ID),
		Name:        a.Name,
		Artist:      a.ArtistName,
		Album:       a.AlbumName,
		Duration:    FormatMMSS(a.DurationInMillis),
		ReleaseDate: optional(a.ReleaseDate),
		URL:         canonicalURL(it.ID, a.URL),
		Image:       artworkURL(a.Artwork, artworkSizeRecent),
	}
}
