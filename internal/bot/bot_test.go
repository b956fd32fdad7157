package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ggorockee/partfinder/internal/region"
	"github.com/ggorockee/partfinder/internal/session"
	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	queries []models.SearchQuery
}

func (f *fakeSearcher) SearchQuery(_ context.Context, _ string, q models.SearchQuery) models.DisplayResult {
	f.queries = append(f.queries, q)
	return models.DisplayResult{
		Blocks:          []string{"🔧 **" + q.RawText + "**", "🔁 **Аналоги:**"},
		MarketplaceLink: "https://moskva.avito.ru/all/avtozapchasti_i_aksessuary?q=" + q.RawText,
	}
}

type fakeHistory struct {
	records []models.HistoryRecord
	err     error
}

func (f *fakeHistory) Recent(context.Context, string, int) ([]models.HistoryRecord, error) {
	return f.records, f.err
}

type fakeExtractor struct {
	id string
	ok bool
}

func (f *fakeExtractor) ExtractFromImage(context.Context, string) (string, bool) {
	return f.id, f.ok
}

func newTestHandler(ext PhotoExtractor) (*Handler, *fakeSearcher, *session.MemoryStore) {
	store := session.NewMemoryStore("Новосибирск")
	search := &fakeSearcher{}
	h := NewHandler(store, search, &fakeHistory{}, ext, region.New(), "Новосибирск")
	return h, search, store
}

func TestTextIgnoredOutsideTextMode(t *testing.T) {
	h, search, _ := newTestHandler(nil)
	assert.Empty(t, h.Text(context.Background(), "1", "0445120012"))
	assert.Empty(t, search.queries)
}

func TestTextModeSearchesOnce(t *testing.T) {
	ctx := context.Background()
	h, search, _ := newTestHandler(nil)

	h.Button(ctx, "1", ButtonText)
	replies := h.Text(ctx, "1", "  0445120012 ")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "0445120012")
	assert.Equal(t, marketplaceButton, replies[0].LinkLabel)
	assert.Contains(t, replies[0].LinkURL, "avito.ru")

	require.Len(t, search.queries, 1)
	assert.Equal(t, "Новосибирск", search.queries[0].City)

	// mode is consumed
	assert.Empty(t, h.Text(ctx, "1", "again"))
}

func TestTextModeDetectsCity(t *testing.T) {
	ctx := context.Background()
	h, search, store := newTestHandler(nil)

	h.Button(ctx, "1", ButtonText)
	replies := h.Text(ctx, "1", "A123BC77")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0].Text, "Москва")
	assert.Equal(t, "Москва", search.queries[0].City)

	s, _ := store.Get(ctx, "1")
	assert.Equal(t, "Москва", s.City)
}

func TestFiltersFlowIntoSearch(t *testing.T) {
	ctx := context.Background()
	h, search, _ := newTestHandler(nil)

	h.Button(ctx, "1", partTypePrefix+string(models.PartTypeUsedOEM))
	h.Button(ctx, "1", pricePrefix+string(models.PriceOver10000))
	h.Button(ctx, "1", cityPrefix+"Казань")
	h.Button(ctx, "1", ButtonText)
	h.Text(ctx, "1", "611113112R")

	require.Len(t, search.queries, 1)
	q := search.queries[0]
	assert.Equal(t, models.PartTypeUsedOEM, q.PartType)
	assert.Equal(t, models.PriceOver10000, q.Price)
	assert.Equal(t, "Казань", q.City)
}

func TestStartResetsSession(t *testing.T) {
	ctx := context.Background()
	h, _, store := newTestHandler(nil)

	h.Button(ctx, "1", cityPrefix+"Казань")
	h.Button(ctx, "1", pricePrefix+string(models.PriceUnder5000))
	replies := h.Start(ctx, "1")
	require.Len(t, replies, 1)
	assert.Equal(t, mainMenu(), replies[0].Menu)

	s, _ := store.Get(ctx, "1")
	assert.Equal(t, "Новосибирск", s.City)
	assert.Equal(t, models.PriceAny, s.Price)
}

func TestPhoto(t *testing.T) {
	ctx := context.Background()

	h, search, _ := newTestHandler(&fakeExtractor{id: "XY1234Z", ok: true})
	h.Button(ctx, "1", ButtonPhoto)
	assert.True(t, h.WantsPhoto(ctx, "1"))

	replies := h.Photo(ctx, "1", "/tmp/photo.jpg")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0].Text, "XY1234Z")
	assert.Equal(t, "XY1234Z", search.queries[0].RawText)
	assert.False(t, h.WantsPhoto(ctx, "1"))

	h, search, _ = newTestHandler(&fakeExtractor{})
	replies = h.Photo(ctx, "1", "/tmp/photo.jpg")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "OCR не распознал текст")
	assert.Empty(t, search.queries)
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "📭 История пуста.", FormatHistory(nil))

	text := FormatHistory([]models.HistoryRecord{
		{Query: "0445120012", City: "Москва", CreatedAt: time.Date(2024, 5, 2, 9, 5, 0, 0, time.UTC)},
		{Query: "611113112R", City: "Казань", CreatedAt: time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)},
	})
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "• `0445120012` — Москва (2024-05-02 09:05)", lines[2])
	assert.Equal(t, "• `611113112R` — Казань (2024-05-01 18:30)", lines[3])
}

func TestHistoryErrorShowsEmpty(t *testing.T) {
	store := session.NewMemoryStore("Москва")
	h := NewHandler(store, &fakeSearcher{}, &fakeHistory{err: errors.New("db down")}, nil, nil, "Москва")
	r := h.History(context.Background(), "1")
	assert.Equal(t, "📭 История пуста.", r.Text)
}

func TestParseCommand(t *testing.T) {
	cmd, arg, ok := ParseCommand("!", "!city  Санкт-Петербург")
	assert.True(t, ok)
	assert.Equal(t, "city", cmd)
	assert.Equal(t, "Санкт-Петербург", arg)

	cmd, _, ok = ParseCommand("!", "!START")
	assert.True(t, ok)
	assert.Equal(t, "start", cmd)

	_, _, ok = ParseCommand("!", "hello")
	assert.False(t, ok)
	_, _, ok = ParseCommand("!", "!")
	assert.False(t, ok)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := strings.Repeat("абвгд ", 10)
	chunks := SplitMessage(text, 20)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 20)
	}
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
}

func TestComponents(t *testing.T) {
	rows := Components(Reply{Menu: citiesMenu(), LinkURL: "https://x", LinkLabel: "go"})
	require.Len(t, rows, 3)

	cities := rows[0].(discordgo.ActionsRow)
	assert.Len(t, cities.Components, len(Cities))

	link := rows[2].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, discordgo.LinkButton, link.Style)
	assert.Equal(t, "https://x", link.URL)

	for _, m := range []Menu{mainMenu(), filtersMenu(), citiesMenu()} {
		assert.LessOrEqual(t, len(m), 5)
		for _, row := range m {
			assert.LessOrEqual(t, len(row), 5)
		}
	}
}
