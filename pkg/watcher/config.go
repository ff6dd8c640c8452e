package watcher

import "time"

// Config holds the configuration for the status watcher.
type Config struct {
	Interval        time.Duration // time between polls
	Concurrency     int64         // chain/direction pairs polled at once
	PollTimeout     time.Duration // bound on a single GetStatus call
	WriteTimeout    time.Duration // bound on a single sink write
	MaxRetries      int           // retries per sink write after the first attempt
	RetryBackoff    time.Duration
	MaxBlocksBehind uint64 // lag above which a warning is logged, 0 disables
}

func DefaultConfig() Config {
	return Config{
		Interval:        time.Minute,
		Concurrency:     4,
		PollTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    300 * time.Millisecond,
		MaxBlocksBehind: 7200,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
