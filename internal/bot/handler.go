package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggorockee/partfinder/internal/history"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/internal/session"
	"github.com/ggorockee/partfinder/pkg/models"
)

const (
	welcomeText = "🚀 **Бот поиска запчастей**\n\n" +
		"• 📸 Отправьте фото — найдём артикул\n" +
		"• ✏ Введите текст — ищем на Drom\n" +
		"• 🌍 Выберите город\n" +
		"• 🔍 Получите ссылку на Avito\n" +
		"• 📋 Смотрите историю\n\n" +
		"Все поиски — легально и быстро."
	marketplaceButton = "🔍 Искать на Avito"
	historyTimeLayout = "2006-01-02 15:04"
)

// Reply one outbound chat message
type Reply struct {
	Text string
	Menu Menu
	// LinkURL adds a single external link button
	LinkURL   string
	LinkLabel string
}

// Searcher runs a part lookup
type Searcher interface {
	SearchQuery(ctx context.Context, userID string, q models.SearchQuery) models.DisplayResult
}

// HistoryReader reads a user's recent searches
type HistoryReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.HistoryRecord, error)
}

// PhotoExtractor finds a part identifier in a photo file
type PhotoExtractor interface {
	ExtractFromImage(ctx context.Context, path string) (string, bool)
}

// CityDetector maps a plate-like suffix to a city
type CityDetector interface {
	Detect(text string) (string, bool)
}

// Handler transport-independent bot logic
type Handler struct {
	sessions    session.Store
	searcher    Searcher
	history     HistoryReader
	extractor   PhotoExtractor
	detector    CityDetector
	defaultCity string
}

// NewHandler creates a handler. extractor may be nil when OCR is unavailable.
func NewHandler(sessions session.Store, searcher Searcher, hist HistoryReader, extractor PhotoExtractor, detector CityDetector, defaultCity string) *Handler {
	return &Handler{
		sessions:    sessions,
		searcher:    searcher,
		history:     hist,
		extractor:   extractor,
		detector:    detector,
		defaultCity: defaultCity,
	}
}

// Start resets the user's session and shows the main menu
func (h *Handler) Start(ctx context.Context, userID string) []Reply {
	_, err := h.sessions.Update(ctx, userID, func(s *session.Session) error {
		s.City = h.defaultCity
		s.Mode = session.ModeIdle
		s.PartType = models.PartTypeAny
		s.Price = models.PriceAny
		return nil
	})
	if err != nil {
		logger.GetLogger("bot").Warnf("Failed to reset session %s: %v", userID, err)
	}
	return []Reply{{Text: welcomeText, Menu: mainMenu()}}
}

// Button handles a menu button press
func (h *Handler) Button(ctx context.Context, userID, id string) []Reply {
	switch id {
	case ButtonPhoto:
		h.setMode(ctx, userID, session.ModeAwaitingPhoto)
		return []Reply{{Text: "Отправьте фото"}}
	case ButtonText:
		h.setMode(ctx, userID, session.ModeAwaitingText)
		return []Reply{{Text: "Введите артикул или название"}}
	case ButtonHistory:
		return []Reply{h.History(ctx, userID)}
	case ButtonCity:
		return []Reply{{Text: "Выберите город:", Menu: citiesMenu()}}
	case ButtonFilters:
		s, _ := h.sessions.Get(ctx, userID)
		return []Reply{{
			Text: fmt.Sprintf("Фильтры: **%s**, **%s**", s.PartType.Label(), s.Price.Label()),
			Menu: filtersMenu(),
		}}
	case ButtonBack:
		return []Reply{{Text: "Меню:", Menu: mainMenu()}}
	}

	prefix, value := parseButton(id)
	switch prefix {
	case cityPrefix:
		return []Reply{h.SetCity(ctx, userID, value)}
	case partTypePrefix:
		pt := models.ParsePartType(value)
		h.update(ctx, userID, func(s *session.Session) { s.PartType = pt })
		return []Reply{{Text: fmt.Sprintf("🔧 Тип: **%s**", pt.Label()), Menu: filtersMenu()}}
	case pricePrefix:
		pf := models.ParsePriceFilter(value)
		h.update(ctx, userID, func(s *session.Session) { s.Price = pf })
		return []Reply{{Text: fmt.Sprintf("💵 Цена: **%s**", pf.Label()), Menu: filtersMenu()}}
	}

	return []Reply{{Text: "Меню:", Menu: mainMenu()}}
}

// SetCity stores the user's city
func (h *Handler) SetCity(ctx context.Context, userID, city string) Reply {
	city = models.NormalizeCity(city)
	if city == "" {
		return Reply{Text: "Выберите город:", Menu: citiesMenu()}
	}
	h.update(ctx, userID, func(s *session.Session) { s.City = city })
	return Reply{Text: fmt.Sprintf("📍 Город: **%s**", city), Menu: mainMenu()}
}

// Text handles a free-text message. Outside text mode it is ignored.
func (h *Handler) Text(ctx context.Context, userID, text string) []Reply {
	var awaiting bool
	s, err := h.sessions.Update(ctx, userID, func(s *session.Session) error {
		awaiting = s.Mode == session.ModeAwaitingText
		if awaiting {
			s.Mode = session.ModeIdle
		}
		return nil
	})
	if err != nil || !awaiting {
		return nil
	}
	return h.Query(ctx, userID, s, text)
}

// Query searches text directly, regardless of the pending mode
func (h *Handler) Query(ctx context.Context, userID string, s session.Session, text string) []Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Reply{{Text: "Введите артикул или название"}}
	}

	var replies []Reply
	if h.detector != nil {
		if city, ok := h.detector.Detect(text); ok {
			h.update(ctx, userID, func(s *session.Session) { s.City = city })
			s.City = city
			replies = append(replies, Reply{Text: fmt.Sprintf("🚗 Определён город: **%s**", city)})
		}
	}

	return append(replies, h.search(ctx, userID, s, text))
}

// WantsPhoto reports whether the user pressed Photo and has not sent one yet
func (h *Handler) WantsPhoto(ctx context.Context, userID string) bool {
	s, err := h.sessions.Get(ctx, userID)
	return err == nil && s.Mode == session.ModeAwaitingPhoto
}

// Photo handles a downloaded photo
func (h *Handler) Photo(ctx context.Context, userID, path string) []Reply {
	s, _ := h.sessions.Update(ctx, userID, func(s *session.Session) error {
		s.Mode = session.ModeIdle
		return nil
	})

	if h.extractor == nil {
		return []Reply{{Text: "📸 Фото получено. Ищем артикул... (OCR не распознал текст)"}}
	}

	partNumber, ok := h.extractor.ExtractFromImage(ctx, path)
	if !ok {
		return []Reply{{Text: "📸 Фото получено. Ищем артикул... (OCR не распознал текст)"}}
	}

	return []Reply{
		{Text: fmt.Sprintf("✅ Найден артикул: `%s`", partNumber)},
		h.search(ctx, userID, s, partNumber),
	}
}

// History lists the user's recent searches
func (h *Handler) History(ctx context.Context, userID string) Reply {
	records, err := h.history.Recent(ctx, userID, history.RecentLimit)
	if err != nil {
		logger.GetLogger("bot").Warnf("Failed to load history for %s: %v", userID, err)
	}
	return Reply{Text: FormatHistory(records), Menu: mainMenu()}
}

// FormatHistory renders records newest first
func FormatHistory(records []models.HistoryRecord) string {
	if len(records) == 0 {
		return "📭 История пуста."
	}
	var b strings.Builder
	b.WriteString("🕘 **История поиска:**\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "• `%s` — %s (%s)\n", r.Query, r.City, r.CreatedAt.Format(historyTimeLayout))
	}
	return b.String()
}

func (h *Handler) search(ctx context.Context, userID string, s session.Session, text string) Reply {
	res := h.searcher.SearchQuery(ctx, userID, models.SearchQuery{
		RawText:  text,
		PartType: s.PartType,
		Price:    s.Price,
		City:     s.City,
	})
	return Reply{
		Text:      strings.Join(res.Blocks, "\n\n"),
		LinkURL:   res.MarketplaceLink,
		LinkLabel: marketplaceButton,
	}
}

func (h *Handler) setMode(ctx context.Context, userID string, mode session.Mode) {
	h.update(ctx, userID, func(s *session.Session) { s.Mode = mode })
}

func (h *Handler) update(ctx context.Context, userID string, fn func(*session.Session)) {
	_, err := h.sessions.Update(ctx, userID, func(s *session.Session) error {
		fn(s)
		return nil
	})
	if err != nil {
		logger.GetLogger("bot").Warnf("Failed to update session %s: %v", userID, err)
	}
}
