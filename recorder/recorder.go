package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"wastegrid/reinforcement"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	FILE_SUFFIX = ".jsonl.zst"
	// STAMP_LAYOUT is fixed width, so names sort in creation order.
	STAMP_LAYOUT = "20060102T150405.000000000Z"
)

// Record is one step of a recorded episode.
type Record struct {
	EpisodeID   string  `json:"episode_id"`
	Worker      int     `json:"worker"`
	Episode     int     `json:"episode"`
	Step        int     `json:"step"`
	Action      string  `json:"action"`
	Reward      float64 `json:"reward"`
	Event       string  `json:"event"`
	Terminated  bool    `json:"terminated"`
	Truncated   bool    `json:"truncated"`
	Observation []int   `json:"observation"`
	// Features is the observation normalized into [0, 1].
	Features []float64 `json:"features"`
}

// JSONLZstdWriter appends JSON lines to a zstd compressed file. The file is
// created on first write; Write is safe for concurrent use.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewJSONLZstdWriter writes to <baseDir>/<prefix>-<created>-<run id>.jsonl.zst.
// The creation stamp orders recordings by name; the run id keeps concurrent
// runs sharing a directory from sharing a file.
func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	created := time.Now().UTC().Format(STAMP_LAYOUT)
	return &JSONLZstdWriter{
		path: filepath.Join(baseDir, fmt.Sprintf("%s-%s-%s%s", prefix, created, uuid.NewString(), FILE_SUFFIX)),
	}
}

func (w *JSONLZstdWriter) Path() string { return w.path }

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(v)
}

func (w *JSONLZstdWriter) writeLocked(v any) error {
	if w.w == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	return err1
}

// EpisodeRecorder writes one Record per transition of each episode.
type EpisodeRecorder struct{ w *JSONLZstdWriter }

func NewEpisodeRecorder(dir string) *EpisodeRecorder {
	return &EpisodeRecorder{w: NewJSONLZstdWriter(dir, "episodes")}
}

// WriteEpisode records every transition of @res. The episode's lines are written
// under one lock so that concurrent episodes never interleave.
func (r *EpisodeRecorder) WriteEpisode(res *reinforcement.EpisodeResult) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for i, tr := range res.Transitions {
		rec := Record{
			EpisodeID:   res.ID,
			Worker:      res.Worker,
			Episode:     res.Index,
			Step:        i + 1,
			Action:      tr.Action.String(),
			Reward:      tr.Reward,
			Event:       string(tr.Info.Event),
			Terminated:  tr.Terminated,
			Truncated:   tr.Truncated,
			Observation: tr.Observation,
			Features:    tr.Features,
		}
		if err := r.w.writeLocked(rec); err != nil {
			return fmt.Errorf("episode %s step %d: %w", res.ID, i+1, err)
		}
	}
	return nil
}

func (r *EpisodeRecorder) Path() string { return r.w.Path() }
func (r *EpisodeRecorder) Close() error { return r.w.Close() }

// ReadAll decodes every record of a file written by a JSONLZstdWriter.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var records []Record
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// Files lists the recordings in @dir, oldest first.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), FILE_SUFFIX) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// Returns sums the rewards of each recorded episode, in order of first appearance.
func Returns(records []Record) []float64 {
	index := map[string]int{}
	var returns []float64
	for _, rec := range records {
		i, ok := index[rec.EpisodeID]
		if !ok {
			i = len(returns)
			index[rec.EpisodeID] = i
			returns = append(returns, 0)
		}
		returns[i] += rec.Reward
	}
	return returns
}
