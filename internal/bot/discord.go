package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/logger"
	"go.uber.org/zap"
)

const (
	// discord rejects messages longer than this
	maxMessageLength = 2000
	maxPhotoBytes    = 20 << 20
	photoTimeout     = 30 * time.Second
	handlerTimeout   = 60 * time.Second
)

// DiscordService routes discord events to the Handler
type DiscordService struct {
	session       *discordgo.Session
	handler       *Handler
	commandPrefix string
	tempDir       string
	httpClient    *http.Client
	log           *zap.SugaredLogger
}

// NewDiscordService creates the discord transport. The connection is opened by Start.
func NewDiscordService(cfg *config.BotConfig, tempDir string, handler *Handler) (*DiscordService, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is not set")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}

	d := &DiscordService{
		session:       session,
		handler:       handler,
		commandPrefix: cfg.CommandPrefix,
		tempDir:       tempDir,
		httpClient:    &http.Client{Timeout: photoTimeout},
		log:           logger.GetLogger("bot.discord"),
	}

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		d.log.Infof("✅ Bot is online as: %s (%d servers)", event.User.Username, len(event.Guilds))
	})
	session.AddHandler(d.messageCreate)
	session.AddHandler(d.interactionCreate)

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return d, nil
}

// Start opens the gateway connection
func (d *DiscordService) Start() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening discord connection: %w", err)
	}
	d.log.Infof("Discord bot started with prefix %q", d.commandPrefix)
	return nil
}

// Stop closes the gateway connection
func (d *DiscordService) Stop() error {
	return d.session.Close()
}

func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	userID := m.Author.ID
	content := strings.TrimSpace(m.Content)

	if cmd, arg, ok := ParseCommand(d.commandPrefix, content); ok {
		d.send(s, m.ChannelID, d.command(ctx, s, m.ChannelID, userID, cmd, arg))
		return
	}

	if photo := firstImage(m.Attachments); photo != nil {
		isDM := m.GuildID == ""
		if isDM || d.handler.WantsPhoto(ctx, userID) {
			_ = s.ChannelTyping(m.ChannelID)
			d.send(s, m.ChannelID, d.photo(ctx, userID, photo))
		}
		return
	}

	if content == "" {
		return
	}
	replies := d.handler.Text(ctx, userID, content)
	if len(replies) > 0 {
		_ = s.ChannelTyping(m.ChannelID)
	}
	d.send(s, m.ChannelID, replies)
}

func (d *DiscordService) command(ctx context.Context, s *discordgo.Session, channelID, userID, cmd, arg string) []Reply {
	switch cmd {
	case "start", "menu":
		return d.handler.Start(ctx, userID)
	case "history":
		return []Reply{d.handler.History(ctx, userID)}
	case "city":
		return []Reply{d.handler.SetCity(ctx, userID, arg)}
	case "search", "find":
		_ = s.ChannelTyping(channelID)
		sess, err := d.handler.sessions.Get(ctx, userID)
		if err != nil {
			d.log.Warnf("Failed to load session %s: %v", userID, err)
		}
		return d.handler.Query(ctx, userID, sess, arg)
	default:
		return nil
	}
}

func (d *DiscordService) photo(ctx context.Context, userID string, a *discordgo.MessageAttachment) []Reply {
	path, err := d.download(ctx, a)
	if err != nil {
		d.log.Warnf("Failed to download photo from %s: %v", userID, err)
		return []Reply{{Text: "📸 Не удалось загрузить фото."}}
	}
	defer os.Remove(path)

	return d.handler.Photo(ctx, userID, path)
}

func (d *DiscordService) download(ctx context.Context, a *discordgo.MessageAttachment) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(d.tempDir, "partfinder-photo-*"+filepath.Ext(a.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxPhotoBytes)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (d *DiscordService) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	replies := d.handler.Button(ctx, user.ID, i.MessageComponentData().CustomID)
	if len(replies) == 0 {
		return
	}

	first := replies[0]
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    truncate(first.Text, maxMessageLength),
			Components: Components(first),
		},
	})
	if err != nil {
		d.log.Warnf("Error responding to interaction: %v", err)
		return
	}
	d.send(s, i.ChannelID, replies[1:])
}

func (d *DiscordService) send(s *discordgo.Session, channelID string, replies []Reply) {
	for _, r := range replies {
		chunks := SplitMessage(r.Text, maxMessageLength)
		for n, chunk := range chunks {
			msg := &discordgo.MessageSend{Content: chunk}
			// buttons go on the last chunk
			if n == len(chunks)-1 {
				msg.Components = Components(r)
			}
			if _, err := s.ChannelMessageSendComplex(channelID, msg); err != nil {
				d.log.Warnf("Error sending discord message: %v", err)
			}
		}
	}
}

// Components discord action rows for a reply's menu and link button
func Components(r Reply) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for _, row := range r.Menu {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.SecondaryButton,
				CustomID: b.ID,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	if r.LinkURL != "" {
		label := r.LinkLabel
		if label == "" {
			label = r.LinkURL
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: label, Style: discordgo.LinkButton, URL: r.LinkURL},
		}})
	}
	return rows
}

// ParseCommand splits "!city Казань" into ("city", "Казань")
func ParseCommand(prefix, content string) (cmd, arg string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}
	fields := strings.SplitN(rest, " ", 2)
	cmd = strings.ToLower(fields[0])
	if len(fields) == 2 {
		arg = strings.TrimSpace(fields[1])
	}
	return cmd, arg, true
}

func firstImage(attachments []*discordgo.MessageAttachment) *discordgo.MessageAttachment {
	for _, a := range attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			return a
		}
	}
	return nil
}

// SplitMessage splits text into chunks of at most limit runes, preferring
// line and word boundaries
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		window := string(runes[:limit])
		if i := strings.LastIndex(window, "\n"); i > len(window)/2 {
			cut = len([]rune(window[:i]))
		} else if i := strings.LastIndex(window, " "); i > len(window)/2 {
			cut = len([]rune(window[:i]))
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \n"))
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
