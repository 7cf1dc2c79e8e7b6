package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tartampluch/go-remind/internal/book"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
	"github.com/tartampluch/go-remind/internal/i18n"
	"github.com/tartampluch/go-remind/internal/notify"
	"github.com/tartampluch/go-remind/internal/reminder"
	"github.com/tartampluch/go-remind/internal/server"
	"github.com/tartampluch/go-remind/internal/store"
	"github.com/tartampluch/go-remind/internal/worker"
)

// logLevel is shared by every handler so the settings file can raise it
// after logging is already set up.
var logLevel = new(slog.LevelVar)

// main delegates to runMain so deferred calls run before os.Exit.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	settingsPath := flag.String(config.FlagConfig, "", config.FlagDescConfig)
	once := flag.Bool(config.FlagOnce, false, config.FlagDescOnce)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	if err := run(ctx, *settingsPath, *once); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads the settings, wires dependencies and blocks until ctx is done.
func run(ctx context.Context, settingsPath string, once bool) error {
	if settingsPath == "" {
		p, err := config.DefaultSettingsPath()
		if err != nil {
			return err
		}
		settingsPath = p
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	if settings.LogLevel == "debug" {
		logLevel.Set(slog.LevelDebug)
	}

	loc, err := settings.Location()
	if err != nil {
		return err
	}
	tr := i18n.New(settings.Language)
	clock := engine.RealClock{Location: loc}
	defaultPolicy := reminder.FromSettings(settings.DefaultPolicy)

	policies, closeStore, err := openPolicyStore(ctx, settings, defaultPolicy)
	if err != nil {
		return err
	}
	defer closeStore()
	if changed, err := reminder.ApplyDefault(ctx, policies, defaultPolicy); err != nil {
		return err
	} else if changed {
		slog.Info(config.MsgDefaultApplied, config.LogKeyComponent, config.CompMain)
	}

	dispatcher := notify.NewTimerDispatcher(newSender(settings), clock.Now)
	defer dispatcher.Close()

	b := book.New(policies, reminder.NewScheduler(dispatcher, tr), clock, settings.UpcomingWindowDays)
	srv := server.NewCalendarServer(settings.ListenPort)

	refresh := &worker.Refresh{
		Importer: &engine.Importer{Fetcher: engine.NewHTTPFetcher()},
		Source: engine.SourceConfig{
			Mode:      settings.Source.Mode,
			LocalPath: settings.Source.LocalPath,
			WebURL:    settings.Source.WebURL,
			WebUser:   settings.Source.WebUser,
			WebPass:   config.Secret(settings.Source.WebUser, config.EnvCardDAVPassword),
		},
		Holidays:  settings.Holidays,
		Book:      b,
		Builder:   &engine.CalendarBuilder{Clock: clock, FormatSummary: summaryFormatter(tr)},
		Localizer: tr,
		Publisher: srv,
	}

	if once {
		if err := refresh.Run(ctx); err != nil {
			return err
		}
		return printSections(os.Stdout, refresh.Sections(), tr, loc)
	}

	w, err := worker.New(settings.RefreshCron, loc, refresh.Run)
	if err != nil {
		return err
	}
	// A failed first refresh still leaves the server up with whatever loaded.
	if err := w.RunNow(ctx); err != nil {
		slog.Warn(config.ErrRefreshFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
	}
	w.Start()

	serverErr := srv.Start(ctx)
	slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompMain)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer stopCancel()
	w.Stop(stopCtx)

	return serverErr
}

// openPolicyStore picks PostgreSQL, then the YAML file, then memory.
func openPolicyStore(ctx context.Context, s *config.Settings, def reminder.Policy) (reminder.PolicyStore, func(), error) {
	noop := func() {}
	log := slog.With(config.LogKeyComponent, config.CompMain)

	switch {
	case s.DatabaseURL != "":
		db, err := store.NewPostgresConnection(ctx, s.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		ps, err := store.NewPostgresStore(ctx, db, def)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		log.Info(config.MsgStoreSelected, config.LogKeyStore, config.StoreKindPostgres)
		return ps, func() { _ = db.Close() }, nil

	case s.PolicyFile != "":
		fs, err := store.OpenFileStore(s.PolicyFile, def)
		if err != nil {
			return nil, noop, err
		}
		log.Info(config.MsgStoreSelected,
			config.LogKeyStore, config.StoreKindFile,
			config.LogKeyPath, s.PolicyFile,
		)
		return fs, noop, nil
	}

	log.Info(config.MsgStoreSelected, config.LogKeyStore, config.StoreKindMemory)
	return reminder.NewMemoryStore(def), noop, nil
}

// newSender always logs fired reminders and also posts them to Telegram
// when a chat and token are configured.
func newSender(s *config.Settings) notify.Sender {
	senders := notify.MultiSender{notify.LogSender{}}

	token := config.Secret(config.KeyringTelegram, config.EnvTelegramToken)
	if s.Telegram.ChatID == 0 || token == "" {
		return senders
	}
	bot, err := notify.NewTelegramBot(token)
	if err != nil {
		slog.Warn(config.ErrTelegramInit,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return senders
	}
	return append(senders, notify.NewTelegramSender(bot, s.Telegram.ChatID))
}

// summaryFormatter localizes calendar event summaries.
func summaryFormatter(tr *i18n.Translator) func(engine.Entity, int, bool) string {
	return func(e engine.Entity, age int, hasAge bool) string {
		data := map[string]any{"Name": e.Name}
		var id, fallback string
		switch {
		case e.Kind == config.KindHoliday:
			id, fallback = config.TKeyEvtSummaryHolid, e.Name
		case hasAge && age == 0:
			id, fallback = config.TKeyEvtSummaryBirth, fmt.Sprintf(config.FallbackSummaryBirth, e.Name)
		case hasAge:
			data["Age"] = age
			id, fallback = config.TKeyEvtSummaryAge, fmt.Sprintf(config.FallbackSummaryAge, e.Name, age)
		default:
			id, fallback = config.TKeyEvtSummary, fmt.Sprintf(config.FallbackSummary, e.Name)
		}
		if msg, ok := tr.Message(id, data, nil); ok {
			return msg
		}
		return fallback
	}
}

// printSections writes the --once preview.
func printSections(w io.Writer, sections []worker.SectionView, loc engine.Localizer, tz *time.Location) error {
	var errs []error
	write := func(format string, args ...any) {
		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, s := range sections {
		write("%s\n", s.Title)
		for _, it := range s.Items {
			if it.Next.IsZero() {
				write("  %s\n", it.Value.Name)
				continue
			}
			line := fmt.Sprintf("  %s  %s", engine.FormatDayMonth(it.Next.In(tz), loc), it.Value.Name)
			if it.HasAge && it.Age > 0 {
				line += fmt.Sprintf(" (%d)", it.Age)
			}
			write("%s\n", line)
		}
	}
	return errors.Join(errs...)
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyBuilt, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger: JSON to stdout and to a
// log file in the user's cache directory.
func setupLogging(debugMode bool) io.Closer {
	writers := []io.Writer{os.Stdout}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	if debugMode {
		logLevel.Set(slog.LevelDebug)
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: debugMode,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return filepath.Join(appDir, config.LogFileName), nil
}
