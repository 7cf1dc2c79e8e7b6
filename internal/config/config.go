package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Remind/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Remind"
	AppID             = "com.github.tartampluch.go-remind"
	KeyringService    = "com.github.tartampluch.go-remind"
	KeyringTelegram   = "telegram-bot-token"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	SettingsFileName  = "settings.yaml"
	EnvFileName       = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs, settings and the policy file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagOnce         = "once"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the settings file"
	FlagDescOnce     = "Import, print the sections and exit"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvTimezone        = "REMIND_TIMEZONE"
	EnvListenPort      = "REMIND_LISTEN_PORT"
	EnvDatabaseURL     = "REMIND_DATABASE_URL"
	EnvTelegramChatID  = "REMIND_TELEGRAM_CHAT_ID"
	EnvTelegramToken   = "REMIND_TELEGRAM_TOKEN"
	EnvCardDAVPassword = "REMIND_CARDDAV_PASSWORD"
	EnvLogLevel        = "REMIND_LOG_LEVEL"
	EnvTestDatabaseURL = "REMIND_TEST_DATABASE_URL"
)

// -----------------------------------------------------------------------------
// Entity Kinds
// -----------------------------------------------------------------------------

const (
	KindBirthday = "birthday"
	KindHoliday  = "holiday"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	// Section titles
	TKeySectionToday    = "section_today"
	TKeySectionUpcoming = "section_upcoming"
	TKeySectionUndated  = "section_undated"
	TKeySectionMonth    = "section_month"      // Requires Month
	TKeySectionMonthYr  = "section_month_year" // Requires Month, Year

	// Notification payloads
	TKeyRemTitleBirthday = "reminder_title_birthday"  // Requires Name
	TKeyRemTitleHoliday  = "reminder_title_holiday"   // Requires Name
	TKeyRemTodayBirthday = "reminder_today_birthday"  // Requires Name
	TKeyRemTodayAge      = "reminder_today_age"       // Requires Name, Age
	TKeyRemTodayHoliday  = "reminder_today_holiday"   // Requires Name
	TKeyRemSoonBirthday  = "reminder_soon_birthday"   // Requires Name, Count, Date (plural)
	TKeyRemSoonAge       = "reminder_soon_age"        // Requires Name, Count, Date, Age (plural)
	TKeyRemSoonHoliday   = "reminder_soon_holiday"    // Requires Name, Count, Date (plural)
	TKeyEvtSummary       = "event_summary"            // Requires Name
	TKeyEvtSummaryAge    = "event_summary_age"        // Requires Name, Age
	TKeyEvtSummaryBirth  = "event_summary_birth"      // Requires Name (For age 0)
	TKeyEvtSummaryHolid  = "event_summary_holiday"    // Requires Name
	TKeyFormatDayMonth   = "format_day_month"         // Go layout, e.g. "January 2"
	TKeyMonthPrefix      = "month_"                   // month_1 .. month_12
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb      = "web"
	SourceModeLocal    = "local"
	SourceModeNone     = "none"
	DefaultPort        = "18080"
	DefaultLanguage    = "en"
	DefaultTimezone    = "Local"
	DefaultRefreshCron = "5 0 * * *" // 00:05 every day
	DefaultLeapYear    = 2000        // Leap year fallback for dates like --02-29
	DefaultWindowDays  = 30          // Upcoming section window
	DefaultRemHour     = 9
	DefaultRemMinute   = 0
	MaxOffsetDays      = 7 // Addressable reminder offsets are 0..MaxOffsetDays
	UIDNamespace       = "go-remind-v1" // Namespace seed for deterministic contact IDs
	FormatUIDInput     = "%s|%s"
	FormatIdentifier   = "%s_%s_%d" // kind, ENTITY-UUID, offset
	FormatUID          = "%s-%d@%s"
	FormatUIDRecurring = "%s@%s"
)

// SupportedLanguages defines the list of available message languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// DefaultOffsetsDays is the day-of plus one-day-before reminder pair.
var DefaultOffsetsDays = []int{0, 1}

// ISO8601 Duration Components for alarm triggers
const (
	ISOPeriodPrefix   = "P"
	ISONegativePrefix = "-P"
	ISOTime           = "T"
	ISODay            = "D"
	ISOHour           = "H"
	ISOMinute         = "M"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Remind//Engine//EN"
	ICalCalName   = "Reminders"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "goremind"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropCategories  = "CATEGORIES"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"
	VCardUID  = "UID"

	DefaultICalRefresh = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"
	DateFormatDayMonth  = "January 2"

	// Limits
	MinPort    = 1
	MaxPort    = 65535
	MaxHour    = 23
	MaxMinute  = 59
	MaxMonth   = 12
	YearMonths = 12
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	SendTimeout         = 15 * time.Second
	RefreshTimeout      = 2 * time.Minute
	TelegramPollTimeout = 10 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteCalendar       = "/calendar.ics"
	RouteSections       = "/sections.json"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// CardDAV
// -----------------------------------------------------------------------------

const (
	MethodReport = "REPORT"
	DepthOne     = "1"

	// CardDAVQuery asks an address book collection for every card with its
	// data inline (RFC 6352, section 8.6).
	CardDAVQuery = `<?xml version="1.0" encoding="utf-8"?>
<C:addressbook-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">
  <D:prop>
    <D:getetag/>
    <C:address-data/>
  </D:prop>
</C:addressbook-query>`

	// StatusOKMarker identifies a successful propstat status line.
	StatusOKMarker = " 200 "
)

// -----------------------------------------------------------------------------
// Database
// -----------------------------------------------------------------------------

const (
	DriverPostgres        = "postgres"
	DBMaxOpenConns        = 10
	DBMaxIdleConns        = 10
	DBConnMaxLifetime     = 5 * time.Minute
	DBConnMaxIdleTime     = 1 * time.Minute
	DefaultPolicyRecordID = "__default__"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderAccept          = "Accept"
	HeaderDepth           = "Depth"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeVCardAccept     = "text/vcard, text/x-vcard;q=0.9, */*;q=0.1"
	MimeXML             = "application/xml; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty  = "configuration error: local path is empty"
	ErrWebURLEmpty     = "configuration error: web URL is empty"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrModeUnsupport   = "configuration error: unsupported source mode"
	ErrSettingsPath    = "configuration error: settings path is empty"
	ErrSettingsNil     = "configuration error: settings are nil"
	ErrSettingsRead    = "failed to read settings"
	ErrSettingsParse   = "failed to parse settings"
	ErrSettingsWrite   = "failed to write settings"
	ErrTimezone        = "configuration error: unknown timezone"
	ErrCronSpec        = "configuration error: invalid refresh schedule"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrFetchRequest    = "failed to create request"
	ErrFetchNetwork    = "network error during fetch"
	ErrFetchStatus     = "server returned unexpected status"
	ErrFetchTooLarge   = "address book exceeds size limit"
	ErrFetchRead       = "failed to read address book"
	ErrMultistatus     = "failed to decode CardDAV multistatus"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrJSONEncode      = "failed to encode sections"
	ErrDateParse       = "unable to parse date"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrConfigDir       = "could not determine user config dir"
	ErrCreateDir       = "could not create app directory"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrPolicyInvalid   = "invalid reminder policy"
	ErrPolicyLoad      = "failed to load reminder policy"
	ErrPolicySave      = "failed to save reminder policy"
	ErrPolicyDelete    = "failed to delete reminder policy"
	ErrPolicyFileRead  = "failed to read policy file"
	ErrPolicyFileParse = "failed to parse policy file"
	ErrPolicyFileWrite = "failed to write policy file"
	ErrDBOpen          = "failed to open database connection"
	ErrDBPing          = "failed to ping database"
	ErrDBMigrate       = "failed to prepare database schema"
	ErrEntityUnknown   = "unknown entity"
	ErrEntityID        = "entity ID is required"
	ErrScheduleFailed  = "failed to schedule reminder"
	ErrCancelFailed    = "failed to cancel reminders"
	ErrSendFailed      = "failed to deliver notification"
	ErrTelegramInit    = "failed to initialize Telegram bot"
	ErrRefreshFailed   = "refresh failed"
	ErrImportFailed    = "contact import failed"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSectionToday    = "Today"
	FallbackSectionUpcoming = "Upcoming"
	FallbackSectionUndated  = "No date"
	FallbackSectionMonthYr  = "%s %d"

	FallbackTitleBirthday = "Birthday: %s"
	FallbackTitleHoliday  = "%s"
	FallbackTodayBirthday = "Today is %s's birthday!"
	FallbackTodayAge      = "%s turns %d today!"
	FallbackTodayHoliday  = "%s is today."
	FallbackSoonBirthday  = "%s's birthday is in %d day(s), on %s."
	FallbackSoonAge       = "%s turns %[4]d in %[2]d day(s), on %[3]s."
	FallbackSoonHoliday   = "%s is in %d day(s), on %s."

	FallbackSummary      = "Birthday: %s"
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"
	FallbackName         = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgSyncStarted    = "Import started"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgImportDone     = "Contact import successful"
	MsgImportFinished = "Import finished"
	MsgFetchStart     = "Initiating vCard download"
	MsgFetchStatus    = "Server returned error status"
	MsgFetchBody      = "vCards downloaded"
	MsgFetchUnchanged = "Address book unchanged, reusing previous download"
	MsgGenSuccess     = "Calendar generation successful"
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Feed cache updated"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgSecretMissing  = "Secret retrieval failed (might be empty)"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgSettingsNew    = "Settings file not found, writing defaults"
	MsgScheduled      = "Reminder scheduled"
	MsgSkippedPast    = "Reminder fire date already passed, skipping for this cycle"
	MsgCancelled      = "Reminders cancelled"
	MsgRescheduleAll  = "Rescheduling all reminders"
	MsgEntityAdded    = "Entity added"
	MsgEntityUpdated  = "Entity updated"
	MsgEntityDeleted  = "Entity deleted"
	MsgNotifFired     = "Notification fired"
	MsgNotifDelivered = "Notification delivered"
	MsgWorkerStart    = "Refresh worker started"
	MsgWorkerStop     = "Refresh worker stopped"
	MsgRefreshRun     = "Refresh triggered"
	MsgRefreshDone    = "Refresh finished"
	MsgDBReady        = "Database connection established"
	MsgTelegramReady  = "Telegram sender ready"
	MsgStoreSelected  = "Policy store selected"
	MsgDefaultApplied = "Stored default policy replaced by settings"
	MsgCtxCancel      = "Shutdown signal received"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyUser      = "user"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "dates_found"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyMethod    = "method"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyEntity    = "entity_id"
	LogKeyKind      = "kind"
	LogKeyID        = "id"
	LogKeyOffset    = "offset_days"
	LogKeyFireAt    = "fire_at"
	LogKeySpec      = "spec"
	LogKeyDuration  = "duration_ms"
	LogKeyPath      = "path"
	LogKeyStore     = "store"
	LogKeyNext      = "next_run"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine    = "engine"
	CompServer    = "server"
	CompFetcher   = "fetcher"
	CompWorker    = "worker"
	CompMain      = "main"
	CompI18n      = "i18n"
	CompScheduler = "scheduler"
	CompStore     = "store"
	CompBook      = "book"
	CompNotify    = "notify"
	CompSettings  = "settings"
)

// Policy store backends, as reported at startup.
const (
	StoreKindPostgres = "postgres"
	StoreKindFile     = "file"
	StoreKindMemory   = "memory"
)
