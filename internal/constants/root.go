package constants

import "time"

// SessionMode is the focus preset a session was recorded under
type SessionMode string

// SyncState is the user-visible state of the outbox
type SyncState string

// OutboxOp is the kind of remote write an outbox entry replays
type OutboxOp string

// OutboxStatus is the lifecycle status of an outbox entry
type OutboxStatus string

const (
	AppName            = "tempo"
	DefaultKeyringUser = "remote-connection"
	DefaultConfigPath  = "~/.config/tempo/tempo.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Local schema version stamped into every persisted envelope
	SchemaVersion = 1

	// Retention window applied to history, events and task tombstones
	RetentionDays = 30

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "tempo-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "tempo-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.tempo"
	TrayExecutablePrefix   = "tempo-tray"

	// Timer constants
	TickInterval = time.Second

	// Completion events for the same mode arriving closer together than this are
	// treated as one completion.
	CompletionDebounce = 2 * time.Second

	// Outbox constants
	OutboxMaxAttempts    = 8
	OutboxMaxBackoff     = 600 * time.Second
	OutboxBatchSize      = 50
	DefaultSyncInterval  = 30 * time.Second
	RemoteRequestTimeout = 10 * time.Second

	// Session modes
	ModePomodoro SessionMode = "pomodoro"
	ModeDeepWork SessionMode = "deep_work"
	ModeFlow     SessionMode = "flow"
	ModeAmbient  SessionMode = "ambient"
	ModeCustom   SessionMode = "custom"

	// Sync states
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncError   SyncState = "error"

	// Outbox ops
	OpUpsert OutboxOp = "upsert"
	OpDelete OutboxOp = "delete"
	OpPutDoc OutboxOp = "put_doc"
	OpSweep  OutboxOp = "sweep"

	// Outbox statuses
	OutboxPending OutboxStatus = "pending"
	OutboxDead    OutboxStatus = "dead"

	// Collection names, shared by the local keys and the remote schema
	CollectionSessions = "sessions"
	CollectionHabits   = "habits"
	CollectionTasks    = "tasks"
	CollectionEvents   = "events"

	// Singleton document kinds
	DocPreferences  = "preferences"
	DocGamification = "gamification"

	// Local key holding the signed-in identity
	KeyIdentity = "identity"
)

// Modes lists every valid session mode in display order
var Modes = []SessionMode{ModePomodoro, ModeDeepWork, ModeFlow, ModeAmbient, ModeCustom}
