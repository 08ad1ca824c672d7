package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/extract"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const hackerEarthPage = `<html><body>
<div><div>LIVE CHALLENGES</div>
  <div class="challenge-card">
    <a href="/challenges/hackathon/code-horizon/">
      <div class="challenge-name"> Code Horizon 2026 </div>
      <div class="date-container">Starts 12 Mar 2026 - Ends 14 Mar 2026</div>
      <div class="location">Online</div>
      <div class="challenge-desc">Build <b>tools</b> for developers.</div>
    </a>
  </div>
  <div class="challenge-card">
    <a href="https://www.hackerearth.com/challenges/hackathon/fintech/">
      <div class="challenge-name">FinTech Innovate &amp; Build</div>
      <div class="location">Bengaluru, India</div>
    </a>
  </div>
  <div class="challenge-card">
    <a href="/dup"><div class="challenge-name">Code Horizon 2026</div></a>
  </div>
</div></body></html>`

func TestHackerEarthListing(t *testing.T) {
	items, err := extract.HackerEarthListing([]byte(hackerEarthPage), now)
	require.NoError(t, err)
	require.Len(t, items, 2, "duplicate titles collapse to one id")

	first := items[0]
	assert.Equal(t, "code-horizon-2026", first.ID)
	assert.Equal(t, models.SourceHackerEarth, first.Source)
	assert.Equal(t, "Code Horizon 2026", first.Title)
	assert.Equal(t, "https://www.hackerearth.com/challenges/hackathon/code-horizon/", first.URL)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), first.StartDate)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), first.EndDate)
	assert.Equal(t, "India", first.Location)
	assert.Equal(t, models.ModeOnline, first.Mode)
	assert.Equal(t, "Build tools for developers.", first.Description)

	second := items[1]
	assert.Equal(t, "fintech-innovate-build", second.ID)
	assert.Equal(t, "FinTech Innovate & Build", second.Title)
	assert.Equal(t, "Bengaluru, India", second.Location)
	assert.Equal(t, models.ModeInPerson, second.Mode)
	assert.Equal(t, now, second.StartDate)
	assert.Equal(t, "Join this exciting hackathon organized by HackerEarth.", second.Description)
	require.True(t, second.HasExtras())
	assert.Equal(t, "Prizes worth thousands of dollars", second.Prize)
}

func TestHackerEarthListingEmptyPage(t *testing.T) {
	_, err := extract.HackerEarthListing([]byte("<html><body>maintenance</body></html>"), now)
	assert.ErrorIs(t, err, extract.ErrNoItems)
}

const hackerEarthFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>HackerEarth Challenges</title>
<item>
  <title>AI Summit Hack</title>
  <link>/challenges/hackathon/ai-summit/</link>
  <description>&lt;p&gt;Agents and models.&lt;/p&gt;</description>
  <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
  <category>ai</category>
</item>
</channel></rss>`

func TestHackerEarthFeedPayload(t *testing.T) {
	items, err := extract.HackerEarthListing([]byte(hackerEarthFeed), now)
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "ai-summit-hack", it.ID)
	assert.Equal(t, "https://www.hackerearth.com/challenges/hackathon/ai-summit/", it.URL)
	assert.Equal(t, "Agents and models.", it.Description)
	assert.Equal(t, 2, it.StartDate.Day())
	assert.Contains(t, it.Tags, "ai")
	assert.False(t, it.HasExtras())
}

const devfolioListing = `<html><body>
<a class="Link__LinkBase-sc-af40de-0 abc" href="https://bitbox-5-0.devfolio.co/">BitBox</a>
<a class="Link__LinkBase-sc-af40de-0 abc" href="https://hackhazards-25.devfolio.co/">Hackhazards</a>
<a class="Link__LinkBase-sc-af40de-0 abc" href="https://bitbox-5-0.devfolio.co/">BitBox again</a>
<a class="Link__LinkBase-sc-af40de-0" href="/hackathons/open">Open</a>
<a class="Link__LinkBase-sc-af40de-0" href="/login">Login</a>
<a class="Other" href="https://ignored.devfolio.co/">Ignored</a>
</body></html>`

func TestDevfolioLinks(t *testing.T) {
	links, err := extract.DevfolioLinks([]byte(devfolioListing))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://bitbox-5-0.devfolio.co/",
		"https://hackhazards-25.devfolio.co/",
	}, links)
}

func TestDevfolioLinksNone(t *testing.T) {
	links, err := extract.DevfolioLinks([]byte("<html></html>"))
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDevfolioID(t *testing.T) {
	assert.Equal(t, "bitbox-5-0", extract.DevfolioID("https://bitbox-5-0.devfolio.co/"))
	assert.Equal(t, "eth-global", extract.DevfolioID("https://devfolio.co/hackathons/eth-global"))
	assert.Equal(t, "", extract.DevfolioID("https://devfolio.co/"))
}

const devfolioDetail = `<html><head>
<meta property="og:title" content="BitBox 5.0 | Devfolio">
<meta property="og:image" content="https://assets.devfolio.co/bitbox.png">
<meta property="og:description" content="A 36 hour hackathon in Noida.">
</head><body>
<h1>BitBox 5.0</h1>
<p>Happening March 8 - March 10, 2026 at JIIT</p>
</body></html>`

func TestDevfolioDetail(t *testing.T) {
	it, err := extract.DevfolioDetail([]byte(devfolioDetail), "https://bitbox-5-0.devfolio.co/", now)
	require.NoError(t, err)

	assert.Equal(t, "bitbox-5-0", it.ID)
	assert.Equal(t, models.SourceDevfolio, it.Source)
	assert.Equal(t, "BitBox 5.0", it.Title)
	assert.Equal(t, "A 36 hour hackathon in Noida.", it.Description)
	assert.Equal(t, "https://assets.devfolio.co/bitbox.png", it.ImageURL)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), it.StartDate)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), it.EndDate)
	assert.Equal(t, "India", it.Location)
	require.True(t, it.HasExtras())
	assert.Equal(t, 1, it.TeamSize.Min)
	assert.Equal(t, 4, it.TeamSize.Max)
}

func TestDevfolioDetailDefaults(t *testing.T) {
	it, err := extract.DevfolioDetail([]byte(`<html><head><meta property="og:title" content="Synapses"></head></html>`), "https://synapses-25.devfolio.co/", now)
	require.NoError(t, err)
	assert.Equal(t, "Synapses", it.Title)
	assert.Equal(t, "Join this exciting hackathon on Devfolio.", it.Description)
	assert.Equal(t, now, it.StartDate)
	assert.Equal(t, now.Add(48*time.Hour), it.EndDate)
}

func TestDevfolioDetailNeedsID(t *testing.T) {
	_, err := extract.DevfolioDetail([]byte("<html></html>"), "https://devfolio.co/", now)
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "ethindia-2026", extract.Slug("ETHIndia 2026"))
	assert.Equal(t, "cafe-hack", extract.Slug("  Café   Hack!! "))
	assert.Equal(t, "", extract.Slug("!!!"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Rock & roll", extract.CleanText("<p>Rock &amp; <i>roll</i></p>\n"))
}
