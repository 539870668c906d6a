package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"discord-logbot/archive"
	"discord-logbot/database/guildconfig"
	"discord-logbot/database/history"
	"discord-logbot/database/sentlog"
	"discord-logbot/database/threadindex"
	"discord-logbot/models"
	"discord-logbot/suppressor"
	"discord-logbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

type fakeDiscord struct {
	mu              sync.Mutex
	channels        map[string]*discordgo.Channel
	messages        map[string]*discordgo.Message
	history         map[string][]*discordgo.Message
	sends           []sentMessage
	failSends       map[int]bool
	deletedChannels []string
	deletedMessages []string
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		channels:  map[string]*discordgo.Channel{},
		messages:  map[string]*discordgo.Message{},
		history:   map[string][]*discordgo.Message{},
		failSends: map[int]bool{},
	}
}

func notFoundErr() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func (f *fakeDiscord) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[id]; ok {
		return ch, nil
	}
	return nil, notFoundErr()
}

func (f *fakeDiscord) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[channelID+"/"+messageID]; ok {
		return m, nil
	}
	return nil, notFoundErr()
}

func (f *fakeDiscord) ChannelMessages(channelID string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.history[channelID]
	start := 0
	if beforeID != "" {
		for i, m := range all {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sends)
	f.sends = append(f.sends, sentMessage{ChannelID: channelID, Data: data})
	if f.failSends[n] {
		return nil, errors.New("send failed")
	}
	return &discordgo.Message{ID: fmt.Sprintf("n%d", n), ChannelID: channelID}, nil
}

func (f *fakeDiscord) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMessages = append(f.deletedMessages, channelID+"/"+messageID)
	return nil
}

func (f *fakeDiscord) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedChannels = append(f.deletedChannels, channelID)
	return nil, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	edits     []models.MessageEdit
	deletions []models.MessageDeletion
}

func (l *fakeLedger) RecordEdit(e models.MessageEdit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edits = append(l.edits, e)
	return nil
}

func (l *fakeLedger) RecordDeletion(d models.MessageDeletion) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deletions = append(l.deletions, d)
	return nil
}

func (l *fakeLedger) Close() error { return nil }

type fixture struct {
	discord *fakeDiscord
	engine  *Engine
	store   *history.Store
	index   *threadindex.Index
	sent    *sentlog.Log
	ledger  *fakeLedger
	guilds  *guildconfig.FileStore
}

const (
	guildID   = "g1"
	channelID = "ch1"
	threadID  = "th1"
	logsID    = "logs"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	d := newFakeDiscord()
	d.channels["cat1"] = &discordgo.Channel{ID: "cat1", GuildID: guildID, Name: "Cat", Type: discordgo.ChannelTypeGuildCategory}
	d.channels[channelID] = &discordgo.Channel{ID: channelID, GuildID: guildID, Name: "general", ParentID: "cat1", Type: discordgo.ChannelTypeGuildText}
	d.channels[threadID] = &discordgo.Channel{ID: threadID, GuildID: guildID, Name: "talk", ParentID: channelID, Type: discordgo.ChannelTypeGuildPublicThread}
	d.channels[logsID] = &discordgo.Channel{ID: logsID, GuildID: guildID, Name: "logs", Type: discordgo.ChannelTypeGuildText}

	store := history.NewStore(filepath.Join(root, "Categories"), 50)
	index := threadindex.New(filepath.Join(root, "logs", "threads"), store)
	sup := suppressor.New(time.Minute)
	guilds := guildconfig.NewFileStore(filepath.Join(root, "servers.json"))
	require.NoError(t, guilds.Set(guildID, logsID))
	sent := sentlog.New(filepath.Join(root, "logs", "sent"))
	ledger := &fakeLedger{}

	engine := NewEngine(Options{
		Discord:    d,
		Store:      store,
		Index:      index,
		Archiver:   archive.NewManager(store, index, d, sup),
		Sent:       sent,
		Guilds:     guilds,
		Ledger:     ledger,
		Suppressor: sup,
		Config:     &models.AppConfig{HistoryLimit: 50},
	})
	engine.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return &fixture{discord: d, engine: engine, store: store, index: index, sent: sent, ledger: ledger, guilds: guilds}
}

func (f *fixture) channelKey() history.Key {
	return history.Key{CategoryID: "cat1", CategoryName: "Cat", ChannelID: channelID, ChannelName: "general"}
}

func (f *fixture) threadKey() history.Key {
	k := f.channelKey()
	k.ThreadID = threadID
	return k
}

func userMsg(id, channel, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: channel,
		GuildID:   guildID,
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "alice", Discriminator: "0"},
		Timestamp: time.Unix(1_600_000_000, 0),
	}
}

func rawEmbed(t *testing.T, e *discordgo.MessageEmbed) json.RawMessage {
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	return raw
}

func TestHandleCreate_StoresMessage(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("m1", channelID, "hello")})

	recs, err := f.store.Load(f.channelKey())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "hello", recs[0].Content)
	assert.Equal(t, "u1", recs[0].AuthorID)
}

func TestHandleCreate_Filters(t *testing.T) {
	f := newFixture(t)

	placeholder := userMsg("p1", channelID, "")
	placeholder.WebhookID = "w"
	placeholder.Author.Bot = true
	placeholder.Flags = 1 << 7
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: placeholder})

	f.engine.suppress.Add("s1")
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("s1", channelID, "own")})

	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("l1", logsID, "notification")})

	other := userMsg("o1", channelID, "elsewhere")
	other.GuildID = ""
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: other})

	recs, err := f.store.Load(f.channelKey())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.False(t, f.engine.suppress.Consume("s1"), "suppressed id is consumed once")
}

func TestHandleCreate_AllowList(t *testing.T) {
	f := newFixture(t)
	f.engine.config.AllowedGuilds = []string{"other"}
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("m1", channelID, "hello")})

	recs, err := f.store.Load(f.channelKey())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestHandleCreate_ThreadMessageMapsStarter(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("t1", threadID, "in thread")})

	recs, err := f.store.Load(f.threadKey())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	entry, err := f.index.Lookup(threadID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, f.store.Path(f.threadKey()), entry.Path)
}

func TestHandleCreate_MessageWithThreadFetchesTranscript(t *testing.T) {
	f := newFixture(t)
	var hist []*discordgo.Message
	for i := 149; i >= 0; i-- {
		m := userMsg(fmt.Sprintf("t%03d", i), threadID, fmt.Sprintf("reply %d", i))
		m.Timestamp = time.Unix(1_600_000_000+int64(i), 0)
		hist = append(hist, m)
	}
	f.discord.history[threadID] = hist

	starter := userMsg("s1", channelID, "starter")
	starter.Thread = f.discord.channels[threadID]
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: starter})

	recs, err := f.store.Load(f.threadKey())
	require.NoError(t, err)
	require.Len(t, recs, 150)
	assert.Equal(t, "t149", recs[0].ID)
	assert.Equal(t, "t000", recs[149].ID)

	entry, err := f.index.Lookup("s1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, threadID, entry.ThreadID)
}

func TestClassifyEdit(t *testing.T) {
	before := &models.Message{Content: "hi", Embeds: []json.RawMessage{}}
	after := &models.Message{Content: "hi", Embeds: []json.RawMessage{rawEmbed(t, &discordgo.MessageEmbed{Title: "t"})}}
	assert.Equal(t, Suppress, ClassifyEdit(before, after))

	assert.Equal(t, Accept, ClassifyEdit(&models.Message{Content: "hi"}, &models.Message{Content: "bye"}))
	assert.Equal(t, Suppress, ClassifyEdit(
		&models.Message{Content: "see http://x.com/a/b.png"},
		&models.Message{Content: "see http://y.com/q/b.png"}))
	assert.Equal(t, Accept, ClassifyEdit(nil, &models.Message{Content: "x"}))
}

func TestHandleUpdate_AcceptedEditIsLogged(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("m1", channelID, "hi")})

	f.engine.HandleUpdate(&discordgo.MessageUpdate{Message: userMsg("m1", channelID, "bye")})

	recs, err := f.store.Load(f.channelKey())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "bye", recs[0].Content)

	require.Len(t, f.discord.sends, 1)
	send := f.discord.sends[0]
	assert.Equal(t, logsID, send.ChannelID)
	require.Len(t, send.Data.Embeds, 3)
	assert.Equal(t, "Message Edited", send.Data.Embeds[0].Title)
	assert.Equal(t, "hi", send.Data.Embeds[1].Description)
	assert.Equal(t, "bye", send.Data.Embeds[2].Description)

	require.Len(t, f.ledger.edits, 1)
	assert.Equal(t, "hi", f.ledger.edits[0].OriginalContent)
}

func TestHandleUpdate_PlaceholderPopulatedIsSuppressed(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("m1", channelID, "hi")})

	after := userMsg("m1", channelID, "hi")
	after.Embeds = []*discordgo.MessageEmbed{{Title: "t"}}
	f.engine.HandleUpdate(&discordgo.MessageUpdate{Message: after, BeforeUpdate: userMsg("m1", channelID, "hi")})

	assert.Empty(t, f.discord.sends)
	assert.Empty(t, f.ledger.edits)
}

func TestHandleUpdate_UnknownBeforeIsAccepted(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleUpdate(&discordgo.MessageUpdate{Message: userMsg("m9", channelID, "new")})

	require.Len(t, f.discord.sends, 1)
	assert.Equal(t, "(unknown)", f.discord.sends[0].Data.Embeds[1].Description)

	recs, err := f.store.Load(f.channelKey())
	require.NoError(t, err)
	require.Len(t, recs, 1, "unseen edits degrade into an insert")
}

func TestHandleUpdate_PartialPayloadIsFetched(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("m1", channelID, "hi")})
	f.discord.messages[channelID+"/m1"] = userMsg("m1", channelID, "edited")

	f.engine.HandleUpdate(&discordgo.MessageUpdate{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})

	require.Len(t, f.discord.sends, 1)
	assert.Equal(t, "edited", f.discord.sends[0].Data.Embeds[2].Description)
}

func TestHandleDelete_FromStore(t *testing.T) {
	f := newFixture(t)
	m := userMsg("m1", channelID, "secret")
	m.Attachments = []*discordgo.MessageAttachment{{ID: "a1", URL: "https://cdn/x.png", Filename: "x.png"}}
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: m})

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})

	recs, err := f.store.Load(f.channelKey())
	require.NoError(t, err)
	assert.Empty(t, recs)

	require.Len(t, f.discord.sends, 1)
	embeds := f.discord.sends[0].Data.Embeds
	require.Len(t, embeds, 2)
	assert.Equal(t, "Message deleted", embeds[0].Title)
	assert.Equal(t, "alice (u1)", embeds[0].Fields[0].Value)
	assert.Equal(t, "Attachments", embeds[0].Fields[3].Name)
	assert.Equal(t, "secret", embeds[1].Description)
	assert.Empty(t, f.discord.sends[0].Data.Components)

	ids, err := f.sent.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n0"}, ids)

	require.Len(t, f.ledger.deletions, 1)
	assert.True(t, f.ledger.deletions[0].FromStore)
}

func TestHandleDelete_UnknownMessageUsesPayload(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleDelete(&discordgo.MessageDelete{
		Message:      &discordgo.Message{ID: "m2", ChannelID: channelID, GuildID: guildID},
		BeforeDelete: userMsg("m2", channelID, "cached"),
	})

	require.Len(t, f.discord.sends, 1)
	assert.Equal(t, "cached", f.discord.sends[0].Data.Embeds[1].Description)
	assert.False(t, f.ledger.deletions[0].FromStore)

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m3", ChannelID: channelID, GuildID: guildID}})
	require.Len(t, f.discord.sends, 2)
	assert.Equal(t, "Unknown (N/A)", f.discord.sends[1].Data.Embeds[0].Fields[0].Value)
	assert.Len(t, f.discord.sends[1].Data.Embeds, 1)
}

func TestHandleDelete_IDOnlyPlaceholderIsSkipped(t *testing.T) {
	f := newFixture(t)
	placeholder := userMsg("p1", channelID, "")
	placeholder.WebhookID = "w"
	placeholder.Author.Bot = true
	placeholder.Type = discordgo.MessageTypeReply
	placeholder.InteractionMetadata = &discordgo.MessageInteractionMetadata{ID: "i1"}
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: placeholder})

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "p1", ChannelID: channelID, GuildID: guildID}})
	assert.Empty(t, f.discord.sends)
	assert.Empty(t, f.ledger.deletions)

	// only the first delete is absorbed
	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "p1", ChannelID: channelID, GuildID: guildID}})
	assert.Len(t, f.discord.sends, 1)
}

func TestHandleDelete_ChunksAndSurvivesSendFailure(t *testing.T) {
	f := newFixture(t)
	rec := models.Message{ID: "m1", AuthorID: "u1", AuthorName: "alice", Content: "text", CreatedAt: time.Unix(1_600_000_000, 0)}
	for i := 0; i < 25; i++ {
		rec.Embeds = append(rec.Embeds, rawEmbed(t, &discordgo.MessageEmbed{Title: fmt.Sprintf("e%d", i)}))
	}
	_, err := f.store.Upsert(f.channelKey(), rec)
	require.NoError(t, err)
	f.discord.failSends[1] = true

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})

	require.Len(t, f.discord.sends, 3)
	assert.Len(t, f.discord.sends[0].Data.Embeds, 10)
	assert.Len(t, f.discord.sends[1].Data.Embeds, 10)
	assert.Len(t, f.discord.sends[2].Data.Embeds, 7)

	ids, err := f.sent.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n0", "n2"}, ids)
}

type fakeFetcher struct {
	bodies map[string]string
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, "", errors.New("HTTP 404")
	}
	return []byte(body), "image/png", nil
}

func attachmentRecord(t *testing.T, f *fixture) {
	t.Helper()
	rec := models.Message{
		ID: "m1", AuthorID: "u1", AuthorName: "alice", Content: "pics", CreatedAt: time.Unix(1_600_000_000, 0),
		Attachments: []models.Attachment{
			{ID: "a1", URL: "https://cdn.example/a1/cat.png", Name: "cat.png"},
			{ID: "a2", URL: "https://cdn.example/a2/gone.png", Name: "gone.png"},
		},
	}
	_, err := f.store.Upsert(f.channelKey(), rec)
	require.NoError(t, err)
}

func TestHandleDelete_ReuploadsAttachments(t *testing.T) {
	f := newFixture(t)
	fetcher := &fakeFetcher{bodies: map[string]string{"https://cdn.example/a1/cat.png": "meow"}}
	f.engine.attachments = fetcher
	attachmentRecord(t, f)

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})

	require.Len(t, f.discord.sends, 1)
	assert.Len(t, fetcher.calls, 2)
	files := f.discord.sends[0].Data.Files
	require.Len(t, files, 1)
	assert.Equal(t, "cat.png", files[0].Name)
	assert.Equal(t, "image/png", files[0].ContentType)
	body, err := io.ReadAll(files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "meow", string(body))

	// both attachments are still linked
	meta := f.discord.sends[0].Data.Embeds[0]
	assert.Contains(t, meta.Fields[3].Value, "https://cdn.example/a2/gone.png")
}

func TestHandleDelete_AttachmentUploadFailureFallsBackToLinks(t *testing.T) {
	f := newFixture(t)
	f.engine.attachments = &fakeFetcher{bodies: map[string]string{"https://cdn.example/a1/cat.png": "meow"}}
	attachmentRecord(t, f)
	f.discord.failSends[0] = true

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})

	require.Len(t, f.discord.sends, 2)
	assert.Len(t, f.discord.sends[0].Data.Files, 1)
	assert.Empty(t, f.discord.sends[1].Data.Files)
	assert.Equal(t, "Attachments", f.discord.sends[1].Data.Embeds[0].Fields[3].Name)

	ids, err := f.sent.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, ids)
}

func TestHandleDelete_NoFetcherKeepsLinks(t *testing.T) {
	f := newFixture(t)
	attachmentRecord(t, f)

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})

	require.Len(t, f.discord.sends, 1)
	assert.Empty(t, f.discord.sends[0].Data.Files)
}

func TestDeletionEmbeds_MalformedEmbedPlaceholder(t *testing.T) {
	rec := &models.Message{ID: "m1", Embeds: []json.RawMessage{json.RawMessage(`{"title":5}`), json.RawMessage(`{}`)}}
	embeds := DeletionEmbeds(rec, channelID, time.Now())
	require.Len(t, embeds, 3)
	assert.Equal(t, unparsableEmbed, embeds[1].Description)
	assert.Equal(t, unparsableEmbed, embeds[2].Description)
}

func TestHandleDelete_StarterArchivesThread(t *testing.T) {
	f := newFixture(t)
	f.discord.messages[channelID+"/"+threadID] = userMsg(threadID, channelID, "starter")
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg(threadID, channelID, "starter")})
	f.engine.HandleThreadCreate(&discordgo.ThreadCreate{Channel: f.discord.channels[threadID]})
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("r1", threadID, "reply")})
	live := f.store.Path(f.threadKey())

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: threadID, ChannelID: channelID, GuildID: guildID}})

	assert.NoFileExists(t, live)
	assert.FileExists(t, history.ArchivedPath(live))
	entry, err := f.index.Lookup(threadID)
	require.NoError(t, err)
	assert.Equal(t, history.ArchivedPath(live), entry.Path)
	assert.Equal(t, []string{threadID}, f.discord.deletedChannels)

	require.Len(t, f.discord.sends, 1)
	require.Len(t, f.discord.sends[0].Data.Components, 1)
	row := f.discord.sends[0].Data.Components[0].(discordgo.ActionsRow)
	assert.Equal(t, "view_thread_th1_p0", row.Components[0].(discordgo.Button).CustomID)

	// the platform's thread-delete for our own removal is not reported
	f.engine.HandleThreadDelete(&discordgo.ThreadDelete{Channel: f.discord.channels[threadID]})
	assert.Len(t, f.discord.sends, 1)
}

func TestHandleThreadDelete_ArchivesAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("r1", threadID, "reply")})
	live := f.store.Path(f.threadKey())

	f.engine.HandleThreadDelete(&discordgo.ThreadDelete{Channel: f.discord.channels[threadID]})

	assert.FileExists(t, history.ArchivedPath(live))
	require.Len(t, f.discord.sends, 1)
	embed := f.discord.sends[0].Data.Embeds[0]
	assert.Equal(t, "Thread deleted", embed.Title)
	assert.Equal(t, "talk (th1)", embed.Fields[0].Value)
	assert.Equal(t, "https://discord.com/channels/g1/ch1/th1", embed.Fields[1].Value)
	require.Len(t, f.discord.sends[0].Data.Components, 1)
	assert.Empty(t, f.discord.deletedChannels, "a thread already gone is not deleted again")
}

func TestHandleThreadDelete_ThenStarterDeleteBothReported(t *testing.T) {
	f := newFixture(t)
	f.discord.messages[channelID+"/"+threadID] = userMsg(threadID, channelID, "starter")
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg(threadID, channelID, "starter")})
	f.engine.HandleThreadCreate(&discordgo.ThreadCreate{Channel: f.discord.channels[threadID]})
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("r1", threadID, "reply")})

	f.engine.HandleThreadDelete(&discordgo.ThreadDelete{Channel: f.discord.channels[threadID]})
	require.Len(t, f.discord.sends, 1)
	assert.Empty(t, f.discord.deletedChannels)
	assert.Equal(t, 0, f.engine.suppress.Len())

	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: threadID, ChannelID: channelID, GuildID: guildID}})
	require.Len(t, f.discord.sends, 2)
	assert.Equal(t, "Message deleted", f.discord.sends[1].Data.Embeds[0].Title)
	assert.Equal(t, "starter", f.discord.sends[1].Data.Embeds[1].Description)

	ids, err := f.sent.Get(threadID)
	require.NoError(t, err)
	assert.Equal(t, []string{"n0", "n1"}, ids)
}

func TestHandleThreadDelete_MissingTranscriptStaysOutOfAdminChannel(t *testing.T) {
	admin := &fakeEmbedSender{}
	utils.InitLogger(admin, "admin")
	t.Cleanup(func() { utils.InitLogger(nil, "") })

	f := newFixture(t)
	f.engine.HandleThreadDelete(&discordgo.ThreadDelete{Channel: f.discord.channels[threadID]})

	require.Len(t, f.discord.sends, 1)
	assert.Empty(t, admin.embeds)
}

type fakeEmbedSender struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
}

func (s *fakeEmbedSender) ChannelMessageSendEmbed(_ string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeds = append(s.embeds, embed)
	return &discordgo.Message{}, nil
}

func TestRetract(t *testing.T) {
	f := newFixture(t)
	f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg("m1", channelID, "secret")})
	f.engine.HandleDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: channelID, GuildID: guildID}})
	require.Len(t, f.discord.sends, 1)

	res, err := f.engine.Retract(guildID, "n0", &discordgo.User{ID: "op", Username: "mod", Discriminator: "0"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, "m1", res.OriginalID)
	assert.Equal(t, []string{logsID + "/n0"}, f.discord.deletedMessages)
	assert.True(t, f.engine.suppress.Consume("n0"))

	require.Len(t, f.discord.sends, 2)
	audit := f.discord.sends[1].Data.Embeds[0]
	assert.Equal(t, "Log deleted", audit.Title)
	assert.Equal(t, "mod (op)", audit.Fields[0].Value)
	assert.Equal(t, "Unknown (m1)", audit.Fields[1].Value)

	ids, err := f.sent.Get("m1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRetract_RecoversAuthorFromNotification(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sent.Record("m1", []string{"n7"}))
	f.discord.messages[logsID+"/n7"] = &discordgo.Message{
		ID: "n7",
		Embeds: []*discordgo.MessageEmbed{
			{Title: "Message deleted", Fields: []*discordgo.MessageEmbedField{{Name: "Sent by", Value: "bob (123456789012345678)"}}},
			{Description: "words"},
			{Title: "an embed"},
		},
	}

	_, err := f.engine.Retract(guildID, "n7", nil)
	require.NoError(t, err)
	audit := f.discord.sends[0].Data.Embeds[0]
	assert.Equal(t, "bob (123456789012345678)", audit.Fields[1].Value)
	assert.Equal(t, "Text: ✅\nEmbed: ✅\nAttachment: ❌", audit.Fields[2].Value)
	assert.Equal(t, "words", audit.Description)
}

func TestRetract_NoLogsChannel(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.guilds.Remove(guildID))
	_, err := f.engine.Retract(guildID, "n0", nil)
	assert.ErrorIs(t, err, ErrNoLogsChannel)
}

func TestViewTranscript(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 40; i++ {
		f.engine.HandleCreate(&discordgo.MessageCreate{Message: userMsg(fmt.Sprintf("r%02d", i), threadID, fmt.Sprintf("reply %d", i))})
	}

	entry, pages, err := f.engine.ViewTranscript(threadID)
	require.NoError(t, err)
	assert.True(t, history.IsArchivedPath(entry.Path))
	assert.Len(t, pages, 2)
	assert.Equal(t, []string{threadID}, f.discord.deletedChannels)

	_, _, err = f.engine.Transcript("missing")
	assert.ErrorIs(t, err, ErrNoThreadHistory)
}
