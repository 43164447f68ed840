package botdetect

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Built-in generic-username shapes. Heuristic, overridable via a patterns
// file.
var defaultPatternSources = []string{
	`(?i)^user\d+$`,       // user123
	`(?i)^[a-z]+\d{4,}$`,  // name12345
	`(?i)^[a-z]{4,}_\d+$`, // random_123
	`(?i)^bot[_-]?`,       // bot_name
	`\d{6,}`,              // 6+ consecutive digits
	`(?i)^[a-z]{1,3}\d+$`, // ab123
	`(?i)^(test|fake|spam)`,
}

// PatternSet holds the active username regexes. Safe for concurrent use;
// Match runs on the event path while reloads come from the file watcher.
type PatternSet struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
}

func DefaultPatterns() *PatternSet {
	patterns := make([]*regexp.Regexp, 0, len(defaultPatternSources))
	for _, src := range defaultPatternSources {
		patterns = append(patterns, regexp.MustCompile(src))
	}
	return &PatternSet{patterns: patterns}
}

// Match reports whether the username matches any active pattern.
func (p *PatternSet) Match(username string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, re := range p.patterns {
		if re.MatchString(username) {
			return true
		}
	}
	return false
}

// LoadFile replaces the active patterns with the file's contents: one
// regexp per line, blank lines and # comments ignored. An invalid line
// fails the whole load and the previous set stays active.
func (p *PatternSet) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var patterns []*regexp.Regexp
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		src := strings.TrimSpace(scanner.Text())
		if src == "" || strings.HasPrefix(src, "#") {
			continue
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return fmt.Errorf("patterns %s:%d: %w", path, line, err)
		}
		patterns = append(patterns, re)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(patterns) == 0 {
		return fmt.Errorf("patterns %s: no patterns defined", path)
	}

	p.mu.Lock()
	p.patterns = patterns
	p.mu.Unlock()
	return nil
}
