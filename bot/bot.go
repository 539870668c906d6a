package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"discord-logbot/archive"
	"discord-logbot/attachments"
	"discord-logbot/config"
	"discord-logbot/database/guildconfig"
	"discord-logbot/database/history"
	"discord-logbot/database/ledger"
	"discord-logbot/database/sentlog"
	"discord-logbot/database/threadindex"
	transcriptrpc "discord-logbot/grpc"
	"discord-logbot/handlers/message"
	"discord-logbot/models"
	"discord-logbot/suppressor"
	"discord-logbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/codeGROOVE-dev/retry"
	"github.com/spf13/viper"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Platform *Platform
	Config   *models.AppConfig
	Commands map[string]*discordgo.ApplicationCommand
	Auth     *utils.Auth

	Engine *message.Engine
	Store  *history.Store
	Index  *threadindex.Index
	Guilds *guildconfig.FileStore
	Sent   *sentlog.Log
	Ledger *ledger.Ledger

	grpcServer *transcriptrpc.Server
	startedAt  time.Time
}

// NewBot creates and initializes a new Bot instance.
func NewBot() (*Bot, error) {
	config.LoadConfig()
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	dg, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		Session:  dg,
		Platform: &Platform{Session: dg},
		Config:   cfg,
		Commands: make(map[string]*discordgo.ApplicationCommand),
		Auth:     utils.NewAuth(cfg.CommandsConfig),
	}
	b.wire(b.Platform)
	return b, nil
}

// newSession creates the gateway session. The state keeps the last
// HistoryLimit messages per channel so delete and update events carry the
// message as it was before.
func newSession(cfg *models.AppConfig) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds | discordgo.IntentsMessageContent
	dg.State.MaxMessageCount = cfg.HistoryLimit
	if dg.State.MaxMessageCount <= 0 {
		dg.State.MaxMessageCount = history.DefaultLimit
	}
	return dg, nil
}

// wire builds the stores and the engine on top of discord.
func (b *Bot) wire(discord message.Discord) {
	cfg := b.Config
	logsDir := filepath.Join(cfg.DataDir, "logs")

	b.Store = history.NewStore(filepath.Join(cfg.DataDir, "Categories"), cfg.HistoryLimit)
	b.Index = threadindex.New(filepath.Join(logsDir, "threads"), b.Store)
	b.Sent = sentlog.New(filepath.Join(logsDir, "sent"))
	b.Guilds = guildconfig.NewFileStore(filepath.Join(cfg.DataDir, "servers.json"))

	sup := suppressor.New(cfg.SuppressTTL)
	opts := message.Options{
		Discord:     discord,
		Store:       b.Store,
		Index:       b.Index,
		Archiver:    archive.NewManager(b.Store, b.Index, discord, sup),
		Sent:        b.Sent,
		Guilds:      b.Guilds,
		Suppressor:  sup,
		Config:      cfg,
		Attachments: attachments.New(nil, attachments.DefaultMaxSize),
	}

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		log.Printf("Ledger disabled: %v", err)
	} else {
		b.Ledger = l
		opts.Ledger = l
		b.Store.OnEvict(b.recordEviction)
	}

	b.Engine = message.NewEngine(opts)
}

func (b *Bot) recordEviction(path string, rec models.Message) {
	err := b.Ledger.RecordEviction(models.Eviction{
		MessageID: rec.ID,
		ChannelID: rec.ChannelID,
		StorePath: path,
	})
	if err != nil {
		log.Printf("Failed to record eviction of %s: %v", rec.ID, err)
	}
}

// RegisterCommands registers the provided commands.
func (b *Bot) RegisterCommands(commands []*discordgo.ApplicationCommand) {
	for _, cmd := range commands {
		b.Commands[cmd.Name] = cmd
	}
}

// Start opens the bot's session and registers handlers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	err := retry.Do(
		func() error {
			return b.Session.Open()
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(context.Background()),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("Retrying gateway connection (attempt %d): %v", n+1, err)
		}),
	)
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.startedAt = time.Now()

	utils.InitLogger(b.Session, b.Config.AdminChannelID)

	// Register slash commands
	for _, cmd := range b.Commands {
		_, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", cmd)
		if err != nil {
			log.Printf("Cannot create '%v' command: %v", cmd.Name, err)
		}
	}

	b.startScheduler()

	if err := b.startGRPC(); err != nil {
		utils.Error("Bot", "StartGRPC", err.Error())
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

func (b *Bot) startGRPC() error {
	if b.Config.GRPCListen == "" {
		return nil
	}
	lis, err := net.Listen("tcp", b.Config.GRPCListen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.Config.GRPCListen, err)
	}
	b.grpcServer = transcriptrpc.NewServer(transcriptrpc.NewService(b.Engine, isMissingTranscript))
	go func() {
		if err := b.grpcServer.Serve(lis); err != nil {
			log.Printf("Transcript service stopped: %v", err)
		}
	}()
	return nil
}

func isMissingTranscript(err error) bool {
	return errors.Is(err, message.ErrNoThreadHistory) || errors.Is(err, message.ErrThreadFileMissing)
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	stopScheduler()
	if b.grpcServer != nil {
		b.grpcServer.Stop()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	if b.Engine != nil {
		if err := b.Engine.Close(); err != nil {
			log.Printf("Error closing engine: %v", err)
		}
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot), commands []*discordgo.ApplicationCommand) {
	bot, err := NewBot()
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	bot.RegisterCommands(commands)

	if err := bot.Start(registerHandlers); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}
