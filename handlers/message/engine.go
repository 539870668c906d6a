// Package message reconciles message and thread lifecycle events against the
// stored history and posts audit notifications.
package message

import (
	"fmt"
	"log"
	"sort"
	"time"

	"discord-logbot/archive"
	"discord-logbot/database/guildconfig"
	"discord-logbot/database/history"
	"discord-logbot/database/sentlog"
	"discord-logbot/database/threadindex"
	"discord-logbot/models"
	"discord-logbot/normalizer"
	"discord-logbot/suppressor"

	"github.com/bwmarrin/discordgo"
)

const threadFetchLimit = 100

// placeholderTTL covers the lifetime of an interaction token, after which the
// platform no longer removes the placeholder on its own.
const placeholderTTL = 15 * time.Minute

const attachmentFetchTimeout = time.Minute

// Options wires an Engine to its collaborators. Ledger may be nil, and a nil
// Attachments leaves deleted attachments as links.
type Options struct {
	Discord     Discord
	Store       *history.Store
	Index       *threadindex.Index
	Archiver    *archive.Manager
	Sent        *sentlog.Log
	Guilds      guildconfig.Store
	Ledger      Ledger
	Suppressor  *suppressor.Suppressor
	Config      *models.AppConfig
	Attachments AttachmentFetcher
}

// Engine is the MessageHandler backed by the file history.
type Engine struct {
	discord  Discord
	store    *history.Store
	index    *threadindex.Index
	archiver *archive.Manager
	sent     *sentlog.Log
	guilds   guildconfig.Store
	ledger   Ledger
	suppress *suppressor.Suppressor
	config   *models.AppConfig
	now      func() time.Time

	attachments AttachmentFetcher

	// placeholders remembers filtered interaction placeholders so an id-only
	// delete of one is not reported.
	placeholders *suppressor.Suppressor
}

var _ MessageHandler = (*Engine)(nil)

func NewEngine(o Options) *Engine {
	cfg := o.Config
	if cfg == nil {
		cfg = &models.AppConfig{}
	}
	sup := o.Suppressor
	if sup == nil {
		sup = suppressor.New(cfg.SuppressTTL)
	}
	return &Engine{
		discord:  o.Discord,
		store:    o.Store,
		index:    o.Index,
		archiver: o.Archiver,
		sent:     o.Sent,
		guilds:   o.Guilds,
		ledger:   o.Ledger,
		suppress: sup,
		config:   cfg,
		now:      time.Now,

		attachments:  o.Attachments,
		placeholders: suppressor.New(placeholderTTL),
	}
}

func (e *Engine) Close() error {
	if e.ledger != nil {
		return e.ledger.Close()
	}
	return nil
}

// location is where a channel's messages are stored.
type location struct {
	Key     history.Key
	GuildID string
	Channel *discordgo.Channel
}

func (e *Engine) locate(channelID string) (*location, error) {
	ch, err := e.discord.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel %s: %w", channelID, err)
	}
	return e.locateChannel(ch), nil
}

// locateChannel builds the store key of ch: its category and channel, plus
// the thread when ch is one.
func (e *Engine) locateChannel(ch *discordgo.Channel) *location {
	loc := &location{GuildID: ch.GuildID, Channel: ch}
	parent := ch
	if ch.IsThread() {
		loc.Key.ThreadID = ch.ID
		parent = &discordgo.Channel{ID: ch.ParentID}
		if p, err := e.discord.Channel(ch.ParentID); err == nil && p != nil {
			parent = p
		} else if err != nil {
			log.Printf("[engine] failed to resolve parent %s of thread %s: %v", ch.ParentID, ch.ID, err)
		}
	}
	loc.Key.ChannelID = parent.ID
	loc.Key.ChannelName = parent.Name
	if parent.ParentID != "" {
		loc.Key.CategoryID = parent.ParentID
		if cat, err := e.discord.Channel(parent.ParentID); err == nil && cat != nil {
			loc.Key.CategoryName = cat.Name
		}
	}
	return loc
}

// threadKey is the store key of threadID under the channel at loc.
func threadKey(parent history.Key, threadID string) history.Key {
	parent.ThreadID = threadID
	return parent
}

// Accepts applies the guild allow-list and keeps the bot's own notification
// channel out of the history.
func (e *Engine) Accepts(guildID, channelID string) bool {
	if guildID == "" || !e.config.AllowsGuild(guildID) {
		return false
	}
	return e.guilds == nil || !e.guilds.IsLogsChannel(guildID, channelID)
}

// isPlaceholder reports whether msg is an interaction placeholder and
// remembers its id when it is.
func (e *Engine) isPlaceholder(msg *discordgo.Message) bool {
	if !normalizer.IsInteractionPlaceholder(msg) {
		return false
	}
	e.placeholders.Add(msg.ID)
	return true
}

// HandleCreate records a new message.
func (e *Engine) HandleCreate(m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.ID == "" {
		return
	}
	msg := m.Message
	if e.isPlaceholder(msg) {
		return
	}
	if e.suppress.Consume(msg.ID) {
		log.Printf("[engine] skipping suppressed message %s", msg.ID)
		return
	}
	if !e.Accepts(msg.GuildID, msg.ChannelID) {
		return
	}

	loc, err := e.locate(msg.ChannelID)
	if err != nil {
		log.Printf("[engine] %v", err)
		return
	}
	if _, err := e.store.Upsert(loc.Key, normalizer.FromMessage(msg)); err != nil {
		log.Printf("[engine] failed to store message %s: %v", msg.ID, err)
		return
	}

	if loc.Key.IsThread() {
		e.mapStarter(loc.Key.ThreadID, loc.Key.ThreadID, e.store.Path(loc.Key))
	}
	if msg.Thread != nil {
		key := threadKey(loc.Key, msg.Thread.ID)
		if _, err := e.SyncThread(msg.Thread.ID, key, msg.ID); err != nil {
			log.Printf("[engine] failed to refresh thread %s: %v", msg.Thread.ID, err)
		}
	}
}

// mapStarter records the index entry for a thread unless one already exists.
func (e *Engine) mapStarter(starterID, threadID, path string) {
	entry, err := e.index.Lookup(starterID)
	if err == nil && entry != nil && entry.ThreadID == threadID {
		return
	}
	if err := e.index.Record(starterID, threadID, path); err != nil {
		log.Printf("[engine] %v", err)
	}
}

// SyncThread fetches a thread's full message history, replaces its
// transcript and maps starterID to it. It returns the number of records.
func (e *Engine) SyncThread(threadID string, key history.Key, starterID string) (int, error) {
	msgs, err := e.fetchAll(threadID)
	if err != nil {
		return 0, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.After(msgs[j].Timestamp)
	})
	recs := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if normalizer.IsInteractionPlaceholder(msg) {
			continue
		}
		recs = append(recs, normalizer.FromMessage(msg))
	}
	if err := e.store.Save(key, recs); err != nil {
		return 0, err
	}
	if starterID != "" {
		if err := e.index.Record(starterID, threadID, e.store.Path(key)); err != nil {
			log.Printf("[engine] %v", err)
		}
	}
	return len(recs), nil
}

// fetchAll pages backwards through a channel, newest first.
func (e *Engine) fetchAll(channelID string) ([]*discordgo.Message, error) {
	var all []*discordgo.Message
	before := ""
	for {
		batch, err := e.discord.ChannelMessages(channelID, threadFetchLimit, before, "", "")
		if err != nil {
			if len(all) > 0 {
				log.Printf("[engine] stopped paging %s early: %v", channelID, err)
				return all, nil
			}
			return nil, fmt.Errorf("failed to fetch messages of %s: %w", channelID, err)
		}
		all = append(all, batch...)
		if len(batch) < threadFetchLimit {
			return all, nil
		}
		before = batch[len(batch)-1].ID
	}
}

// SeedChannel replaces a channel's store with its latest messages.
func (e *Engine) SeedChannel(ch *discordgo.Channel) (int, error) {
	loc := e.locateChannel(ch)
	limit := e.config.HistoryLimit
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	msgs, err := e.discord.ChannelMessages(ch.ID, limit, "", "", "")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch messages of %s: %w", ch.ID, err)
	}
	recs := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if normalizer.IsInteractionPlaceholder(msg) {
			continue
		}
		recs = append(recs, normalizer.FromMessage(msg))
	}
	return len(recs), e.store.Save(loc.Key, recs)
}

// SeedThread refreshes an active thread's transcript and its starter mapping.
func (e *Engine) SeedThread(th *discordgo.Channel) (int, error) {
	loc := e.locateChannel(th)
	return e.SyncThread(th.ID, loc.Key, e.starterOf(th))
}

// starterOf finds the id of the message a thread was started from: a message
// in the parent channel sharing the thread id, or the first post of a forum
// thread.
func (e *Engine) starterOf(th *discordgo.Channel) string {
	if th.ParentID != "" {
		if msg, err := e.discord.ChannelMessage(th.ParentID, th.ID); err == nil && msg != nil {
			return msg.ID
		}
	}
	if msg, err := e.discord.ChannelMessage(th.ID, th.ID); err == nil && msg != nil {
		return msg.ID
	}
	return ""
}

// notifyChannel returns the guild's notification channel or "".
func (e *Engine) notifyChannel(guildID string) string {
	if e.guilds == nil {
		return ""
	}
	id := e.guilds.Get(guildID)
	if id == "" {
		log.Printf("[engine] no logs channel configured for guild %s", guildID)
	}
	return id
}
