// Package config holds the process-wide configuration for the mutable
// table's host: logging, the mutable table's sizing, and the Table
// descriptor's disk-block constants. Loaded from goccy/go-yaml tags,
// falling back to Default() when no file is present.
package config

// Config is the root configuration.
type Config struct {
	Logger LoggerConfig  `yaml:"logger"`
	Host   HostConfig    `yaml:"host"`
	Table  MutableTable  `yaml:"mutable_table"`
	Data   DataBlock     `yaml:"data"`
}

// LoggerConfig selects the slog handler.
type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// HostConfig controls the LSM tree host that owns the mutable tables.
type HostConfig struct {
	// Shards is the number of independent mutable tables the host keeps,
	// each owning the keys its ShardFunc assigns to it.
	Shards int `yaml:"shards"`
	// FlushWorkers bounds the ants pool that commits drained runs to the
	// flushed-run registry.
	FlushWorkers int `yaml:"flush_workers"`
	// DebugAddr is the listen address for the chi debug/metrics server.
	DebugAddr string `yaml:"debug_addr"`
}

// MutableTable configures the mutable table's constructor inputs.
type MutableTable struct {
	// CommitCountMax is the maximum number of values a single client
	// commit may contribute.
	CommitCountMax int `yaml:"commit_count_max"`
	// BatchMultiple governs how many commits may accumulate before a
	// mandatory flush.
	BatchMultiple int `yaml:"batch_multiple"`
}

// DataBlock mirrors the Table descriptor's disk-block capacity constants.
type DataBlock struct {
	ValueCountMax int `yaml:"value_count_max"`
	BlockCountMax int `yaml:"block_count_max"`
}

// Default returns a baseline development config, sized so four shards of
// 1024 commit_count_max * batch_multiple 4 stay within a generous
// data_block_count_max.
func Default() Config {
	return Config{
		Logger: LoggerConfig{Level: "INFO", JSON: false},
		Host: HostConfig{
			Shards:       4,
			FlushWorkers: 2,
			DebugAddr:    ":6060",
		},
		Table: MutableTable{
			CommitCountMax: 1024,
			BatchMultiple:  4,
		},
		Data: DataBlock{
			ValueCountMax: 128,
			BlockCountMax: 64,
		},
	}
}
