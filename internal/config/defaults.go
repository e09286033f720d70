package config

const (
	defaultCacheDB         = "~/.cache/deduper/index.db"
	defaultLogDir          = "~/.local/share/deduper/logs"
	defaultRemapDir        = "~/.config/deduper/remap"
	defaultQuarantineDir   = "~/deduper-quarantine"
	defaultExtensionFilter = ExtensionFilterDisabled
	defaultSimilarity      = 90
	defaultThumbnailSize   = 128
	defaultExiftoolBinary  = "exiftool"
	defaultFFmpegBinary    = "ffmpeg"
	defaultRenameTemplate  = "[Camera manufacturer]_[Camera model]_[Creation date]"
	defaultOnMissingField  = OnMissingSkip
	defaultOnNameExists    = OnExistsAppendIndex
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Extension filter modes.
const (
	ExtensionFilterDisabled  = "disabled"
	ExtensionFilterWhitelist = "whitelist"
	ExtensionFilterBlacklist = "blacklist"
)

// Rename policy names as they appear in the config file.
const (
	OnMissingSubstitute = "substitute"
	OnMissingSkip       = "skip"
	OnMissingAbort      = "abort"

	OnExistsAppendIndex = "append_index"
	OnExistsSkip        = "skip"
	OnExistsAbort       = "abort"
)

// DefaultEmptyValues lists metadata values treated as absent.
func DefaultEmptyValues() []string {
	return []string{"", "-", "--", "0000:00:00 00:00:00", "0000:00:00", "00:00:00"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDB:       defaultCacheDB,
			LogDir:        defaultLogDir,
			RemapDir:      defaultRemapDir,
			QuarantineDir: defaultQuarantineDir,
		},
		Scan: Scan{
			ExtensionFilter: defaultExtensionFilter,
			Similarity:      defaultSimilarity,
			Thumbnails:      true,
			ThumbnailSize:   defaultThumbnailSize,
		},
		Metadata: Metadata{
			UseExiftool:    true,
			ExiftoolBinary: defaultExiftoolBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			EmptyValues:    DefaultEmptyValues(),
		},
		Rename: Rename{
			Template:       defaultRenameTemplate,
			OnMissingField: defaultOnMissingField,
			OnNameExists:   defaultOnNameExists,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
