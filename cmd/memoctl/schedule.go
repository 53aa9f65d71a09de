package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// call is one invocation of the memoized function, at an offset from the
// start of the replay.
type call struct {
	Key string
	At  time.Duration
}

type schedule struct {
	TTL   time.Duration
	Calls []call
}

type scheduleFile struct {
	TTL   string `yaml:"ttl"`
	Calls []struct {
		Key string `yaml:"key"`
		At  string `yaml:"at"`
	} `yaml:"calls"`
}

func parseOffset(s string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("offset %s is negative", s)
	}
	return d, nil
}

// parseCall parses key@offset. The key may itself contain '@'.
func parseCall(s string) (call, error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return call{}, fmt.Errorf("expected key@offset, got %q", s)
	}
	at, err := parseOffset(s[i+1:])
	if err != nil {
		return call{}, fmt.Errorf("invalid offset in %q: %w", s, err)
	}
	return call{Key: s[:i], At: at}, nil
}

// loadSchedule reads a YAML schedule:
//
//	ttl: 1s
//	calls:
//	  - key: "1,11,26"
//	    at: 0s
//	  - key: "1,11,26"
//	    at: 100ms
func loadSchedule(r io.Reader) (schedule, error) {
	var file scheduleFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return schedule{}, fmt.Errorf("error decoding schedule: %w", err)
	}
	var sched schedule
	if file.TTL != "" {
		ttl, err := str2duration.ParseDuration(file.TTL)
		if err != nil {
			return schedule{}, fmt.Errorf("invalid ttl %q: %w", file.TTL, err)
		}
		sched.TTL = ttl
	}
	for i, c := range file.Calls {
		var at time.Duration
		if c.At != "" {
			var err error
			if at, err = parseOffset(c.At); err != nil {
				return schedule{}, fmt.Errorf("call %d: invalid offset: %w", i+1, err)
			}
		}
		sched.Calls = append(sched.Calls, call{Key: c.Key, At: at})
	}
	return sched, nil
}

// validate checks that calls are in time order, since the clock only moves forward.
func (s schedule) validate() error {
	if len(s.Calls) == 0 {
		return fmt.Errorf("no calls to replay")
	}
	for i := 1; i < len(s.Calls); i++ {
		if s.Calls[i].At < s.Calls[i-1].At {
			return fmt.Errorf("call %d at %s is before the previous call at %s", i+1, s.Calls[i].At, s.Calls[i-1].At)
		}
	}
	return nil
}
