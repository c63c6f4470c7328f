package musickit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottboms/musickit-gateway/domain"
)

func millis(v int64) *int64 { return &v }

func str(v string) *string { return &v }

func TestFormatMMSS(t *testing.T) {
	assert.Nil(t, FormatMMSS(nil))
	assert.Equal(t, "1:05", *FormatMMSS(millis(65000)))
	assert.Equal(t, "0:00", *FormatMMSS(millis(0)))
	// Flooring, not rounding.
	assert.Equal(t, "0:59", *FormatMMSS(millis(59999)))
	assert.Equal(t, "4:03", *FormatMMSS(millis(243210)))
}

func TestFormatHuman(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{1800000, "30 minutes"},
		// 1h 0m 30s: the 30 leftover seconds round up into a minute.
		{3630000, "1 hour, 1 minute"},
		// Rounds to zero entirely.
		{400, "0 minutes"},
		{3600000, "1 hour"},
		{7200000, "2 hours"},
		{5400000, "1 hour, 30 minutes"},
		// Seconds only show when minutes round to zero.
		{23000, "23 seconds"},
		{3623000, "1 hour, 23 seconds"},
		// 59m 45s rounds all the way into an hour.
		{3585000, "1 hour"},
		{60000, "1 minute"},
	}

	for _, tt := range tests {
		got := FormatHuman(millis(tt.ms))
		require.NotNil(t, got)
		assert.Equal(t, tt.want, *got, "input %d ms", tt.ms)
	}

	assert.Nil(t, FormatHuman(nil))
}

func TestHumanDate(t *testing.T) {
	assert.Nil(t, HumanDate(nil))
	assert.Nil(t, HumanDate(str("")))
	assert.Equal(t, "March 9, 2004", *HumanDate(str("2004-03-09")))
	assert.Equal(t, "March 2004", *HumanDate(str("2004-03")))
	assert.Equal(t, "2004", *HumanDate(str("2004")))
	// Unexpected formats pass through untouched.
	assert.Equal(t, "someday", *HumanDate(str("someday")))
}

func TestFirstGenre(t *testing.T) {
	assert.Nil(t, FirstGenre(nil))
	assert.Equal(t, "Rock", *FirstGenre([]string{"Rock", "Pop"}))
}

func TestReleaseYear(t *testing.T) {
	assert.Nil(t, releaseYear(""))
	assert.Nil(t, releaseYear("not-a-date"))
	assert.Equal(t, "1997", *releaseYear("1997-06-16"))
	assert.Equal(t, "1997", *releaseYear("1997-06"))
	assert.Equal(t, "1997", *releaseYear("1997"))
}

func TestArtworkURL(t *testing.T) {
	assert.Nil(t, artworkURL(nil, 600))
	assert.Nil(t, artworkURL(&domain.Artwork{}, 600))

	art := &domain.Artwork{URL: "https://img.example/{w}x{h}bb.jpg"}
	assert.Equal(t, "https://img.example/600x600bb.jpg", *artworkURL(art, 600))
	assert.Equal(t, "https://img.example/60x60bb.jpg", *artworkURL(art, 60))
}

func TestCanonicalURLSuppressedForInternalIDs(t *testing.T) {
	// Internal ids lose the url no matter what upstream said.
	assert.Nil(t, canonicalURL("i.abc123", "https://music.example/song"))
	assert.Nil(t, canonicalURL("1440857781", ""))
	assert.Equal(t, "https://music.example/song", *canonicalURL("1440857781", "https://music.example/song"))
}

func TestNormalizeSong(t *testing.T) {
	song := normalizeSong(domain.Resource{
		ID: "1440857781",
		Attributes: domain.Attributes{
			Name:             "Karma Police",
			ArtistName:       "Radiohead",
			AlbumName:        "OK Computer",
			GenreNames:       []string{"Alternative", "Rock"},
			ReleaseDate:      "1997-06-16",
			URL:              "https://music.example/karma-police",
			DurationInMillis: millis(264000),
			Artwork:          &domain.Artwork{URL: "https://img.example/{w}x{h}bb.jpg"},
			Previews:         []domain.Preview{{URL: "https://preview.example/karma"}},
		},
	})

	assert.Equal(t, "Karma Police", song.Name)
	assert.Equal(t, "Radiohead", song.ArtistName)
	require.NotNil(t, song.ReleaseYear)
	assert.Equal(t, "1997", *song.ReleaseYear)
	require.NotNil(t, song.Duration)
	assert.Equal(t, "4:24", *song.Duration)
	require.NotNil(t, song.Image)
	assert.Equal(t, "https://img.example/600x600bb.jpg", *song.Image)
	require.NotNil(t, song.PreviewURL)
	assert.Equal(t, "https://preview.example/karma", *song.PreviewURL)
	require.NotNil(t, song.URL)
}

func TestNormalizeSongInternalID(t *testing.T) {
	song := normalizeSong(domain.Resource{
		ID: "i.0123456",
		Attributes: domain.Attributes{
			Name: "Library Only",
			URL:  "https://music.example/should-vanish",
		},
	})

	assert.Nil(t, song.URL)
	assert.NotNil(t, song.GenreNames)
}

func TestNormalizeAlbum(t *testing.T) {
	album := normalizeAlbum(domain.Resource{
		ID: "1440825181",
		Attributes: domain.Attributes{
			Name:        "OK Computer",
			ArtistName:  "Radiohead",
			ReleaseDate: "1997-06-16",
			URL:         "https://music.example/ok-computer",
			Artwork:     &domain.Artwork{URL: "https://img.example/{w}x{h}bb.jpg"},
		},
		Relationships: &domain.Relationships{
			Tracks: &domain.ResourceList{Data: []domain.Resource{
				{
					ID: "t1",
					Attributes: domain.Attributes{
						Name:             "Airbag",
						TrackNumber:      1,
						DurationInMillis: millis(284000),
						URL:              "https://music.example/airbag",
					},
				},
				{
					ID: "t2",
					Attributes: domain.Attributes{
						Name:                 "Paranoid Android",
						TrackNumber:          2,
						DurationInMillis:     millis(383000),
						IsAppleDigitalMaster: true,
					},
				},
			}},
		},
	})

	assert.Equal(t, "OK Computer", album.Name)
	require.Len(t, album.Tracks, 2)
	assert.Equal(t, 1, album.Tracks[0].TrackNumber)
	require.NotNil(t, album.Tracks[0].Duration)
	assert.Equal(t, "4:44", *album.Tracks[0].Duration)

	// One flagged track is enough for the album-level flag.
	assert.True(t, album.IsDigitalMaster)

	// 284s + 383s = 667s = 11m 7s -> "11 minutes".
	require.NotNil(t, album.Duration)
	assert.Equal(t, "11 minutes", *album.Duration)

	require.NotNil(t, album.ReleaseDateText)
	assert.Equal(t, "June 16, 1997", *album.ReleaseDateText)
	require.NotNil(t, album.ReleaseYear)
	assert.Equal(t, "1997", *album.ReleaseYear)
}

func TestNormalizeAlbumNoMasterFlag(t *testing.T) {
	album := normalizeAlbum(domain.Resource{
		ID: "a1",
		Relationships: &domain.Relationships{
			Tracks: &domain.ResourceList{Data: []domain.Resource{
				{ID: "t1", Attributes: domain.Attributes{Name: "One"}},
			}},
		},
	})

	assert.False(t, album.IsDigitalMaster)
	assert.Nil(t, album.Duration)
}

func TestNormalizeSearchRows(t *testing.T) {
	song := normalizeSearchSong(domain.Resource{
		ID: "s1",
		Attributes: domain.Attributes{
			Name:        "Pyramid Song",
			ArtistName:  "Radiohead",
			ReleaseDate: "2001-05-21",
			Artwork:     &domain.Artwork{URL: "https://img.example/{w}x{h}bb.jpg"},
		},
	})
	assert.Equal(t, "Pyramid Song - Radiohead", song.Text)
	require.NotNil(t, song.Info)
	assert.Equal(t, "2001", *song.Info)
	require.NotNil(t, song.Image)
	assert.Equal(t, "https://img.example/60x60bb.jpg", *song.Image)
	require.NotNil(t, song.Link)
	assert.Equal(t, "applemusic/song/s1", *song.Link)
	assert.Equal(t, "songs", song.Kind)

	album := normalizeSearchAlbum(domain.Resource{
		ID: "a1",
		Attributes: domain.Attributes{
			Name:       "Amnesiac",
			ArtistName: "Radiohead",
			URL:        "https://music.example/amnesiac",
		},
	})
	require.NotNil(t, album.Link)
	assert.Equal(t, "https://music.example/amnesiac", *album.Link)
	assert.Equal(t, "albums", album.Kind)

	untitled := normalizeSearchSong(domain.Resource{ID: "s2", Attributes: domain.Attributes{ArtistName: "Someone"}})
	assert.Equal(t, "Untitled - Someone", untitled.Text)
}

func TestNormalizeRecentItem(t *testing.T) {
	item := normalizeRecentItem(domain.Resource{
		ID: "i.private",
		Attributes: domain.Attributes{
			Name:             "Secret Track",
			ArtistName:       "Somebody",
			AlbumName:        "Bootleg",
			DurationInMillis: millis(65000),
			URL:              "https://music.example/secret",
			Artwork:          &domain.Artwork{URL: "https://img.example/{w}x{h}bb.jpg"},
		},
	})

	require.NotNil(t, item.Duration)
	assert.Equal(t, "1:05", *item.Duration)
	require.NotNil(t, item.Image)
	assert.Equal(t, "https://img.example/240x240bb.jpg", *item.Image)
	// Internal-id items never expose a url in the display feed.
	assert.Nil(t, item.URL)
}
