package parser

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/util"
)

// timestampLayouts are tried in order for each record
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// record is one JSONL line as written by the build and run tooling
type record struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	ExitCode  *int   `json:"exit_code"`
	Command   string `json:"command"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	events  []model.LogEvent
}

// Parser reads build and run log files. Parsed files are cached by path
// until their size or modification time changes.
type Parser struct {
	concurrency int
	mu          sync.Mutex
	cache       map[string]cacheEntry
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File    string
	Events  []model.LogEvent
	Skipped int
	Error   error
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{
		concurrency: concurrency,
		cache:       make(map[string]cacheEntry),
	}
}

// ParseFile parses one JSONL file. Lines that are not valid JSON or carry
// an unusable timestamp or kind are skipped and counted.
func (p *Parser) ParseFile(path string) ([]model.LogEvent, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		p.mu.Unlock()
		return cached.events, 0, nil
	}
	p.mu.Unlock()

	util.LogDebug(fmt.Sprintf("Start parsing file: %s", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	var events []model.LogEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineCount := 0
	skipped := 0
	for scanner.Scan() {
		lineCount++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		event, err := decodeLine(line)
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip invalid line %s:%d - %v", path, lineCount, err))
			skipped++
			continue
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	p.mu.Lock()
	p.cache[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), events: events}
	p.mu.Unlock()

	return events, skipped, nil
}

func decodeLine(line []byte) (model.LogEvent, error) {
	var r record
	if err := sonic.Unmarshal(line, &r); err != nil {
		return model.LogEvent{}, err
	}

	kind, err := model.ParseEventKind(r.Kind)
	if err != nil {
		return model.LogEvent{}, err
	}
	if r.ExitCode == nil {
		return model.LogEvent{}, fmt.Errorf("missing exit_code")
	}
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return model.LogEvent{}, err
	}

	return model.LogEvent{
		Timestamp: ts,
		Kind:      kind,
		ExitCode:  *r.ExitCode,
		Command:   r.Command,
		Stdout:    r.Stdout,
		Stderr:    r.Stderr,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	loc := util.GetTimeProvider().Location()
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebug(fmt.Sprintf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency))

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			events, skipped, err := p.ParseFile(f)
			if err != nil {
				util.LogDebug(fmt.Sprintf("File parsing failed: %s - %v", f, err))
			}

			results <- ParseResult{
				File:    f,
				Events:  events,
				Skipped: skipped,
				Error:   err,
			}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebug(fmt.Sprintf("Concurrent parsing finished, total duration: %v", time.Since(start)))
	}()

	return results
}

// LoadLogSet parses files and splits the events into time-ordered build and
// run lists. Files that fail to open are reported in the returned error but
// do not discard events from the other files.
func (p *Parser) LoadLogSet(files []string) (model.LogSet, error) {
	var set model.LogSet
	var failed []string

	for result := range p.ParseFiles(files) {
		if result.Error != nil {
			failed = append(failed, result.File)
			continue
		}
		for _, e := range result.Events {
			if e.Kind == model.KindBuild {
				set.Builds = append(set.Builds, e)
			} else {
				set.Runs = append(set.Runs, e)
			}
		}
	}

	for _, list := range [][]model.LogEvent{set.Builds, set.Runs} {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.Before(list[j].Timestamp)
		})
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return set, fmt.Errorf("failed to parse %d log files: %s", len(failed), strings.Join(failed, ", "))
	}
	return set, nil
}
