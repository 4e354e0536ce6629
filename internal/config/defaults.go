package config

const (
	defaultConfigPath    = "~/.config/opacitydb/config.toml"
	projectConfigName    = "opacitydb.toml"
	defaultDatabase      = "~/.local/share/opacitydb/opacity.db"
	defaultSourceRoot    = "~/.local/share/opacitydb/raw"
	defaultLogDir        = "~/.local/share/opacitydb/logs"
	defaultMinWavelength = 0.4
	defaultMaxWavelength = 50.0
	defaultOldR          = 1e6
	defaultNewR          = 1e4
	defaultFormat        = "columns"
	defaultAlkaliSource  = "individual_file"
	defaultOnExisting    = "fail"
	defaultWorkers       = 1
	defaultMinFreeGiB    = 5
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Database:   defaultDatabase,
			SourceRoot: defaultSourceRoot,
			LogDir:     defaultLogDir,
		},
		Grid: Grid{
			MinWavelength: defaultMinWavelength,
			MaxWavelength: defaultMaxWavelength,
			OldR:          defaultOldR,
			NewR:          defaultNewR,
		},
		Build: Build{
			Format:       defaultFormat,
			AlkaliSource: defaultAlkaliSource,
			OnExisting:   defaultOnExisting,
			Workers:      defaultWorkers,
			MinFreeGiB:   defaultMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
