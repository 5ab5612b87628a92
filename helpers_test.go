package edgelog

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/Station-Manager/edgelog/ingest"
	"github.com/Station-Manager/edgelog/platform"
	"github.com/stretchr/testify/require"
)

// recordingClient is an ingest.Client that keeps everything in memory.
type recordingClient struct {
	mu            sync.Mutex
	events        map[string][]ingest.Event
	flushes       int
	ingestErr     error
	flushErr      error
	panicOnIngest bool
	panicOnFlush  bool
}

func newRecordingClient() *recordingClient {
	return &recordingClient{events: map[string][]ingest.Event{}}
}

func (r *recordingClient) Ingest(dataset string, events ...ingest.Event) error {
	if r.panicOnIngest {
		panic("ingest exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ingestErr != nil {
		return r.ingestErr
	}
	r.events[dataset] = append(r.events[dataset], events...)
	return nil
}

func (r *recordingClient) Flush(context.Context) error {
	if r.panicOnFlush {
		panic("flush exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return r.flushErr
}

func (r *recordingClient) all(dataset string) []ingest.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ingest.Event(nil), r.events[dataset]...)
}

func (r *recordingClient) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evs := range r.events {
		n += len(evs)
	}
	return n
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

type testEnv struct {
	c       *Configurator
	client  *recordingClient
	console *syncBuffer
	diag    *syncBuffer
}

// networkConfig has ingestion fully configured.
func networkConfig() *Config {
	return &Config{Token: "xaat-test", Dataset: "logs", Level: "debug"}
}

// consoleConfig has no credentials and prints plain lines.
func consoleConfig() *Config {
	return &Config{Level: "debug", NoPrettyPrint: true}
}

func newTestEnv(t testing.TB, cfg *Config, provider platform.Provider) *testEnv {
	t.Helper()
	if provider == nil {
		provider = platform.Generic{}
	}
	env := &testEnv{
		client:  newRecordingClient(),
		console: &syncBuffer{},
		diag:    &syncBuffer{},
	}
	env.c = &Configurator{
		Config:      cfg,
		Platform:    provider,
		Client:      env.client,
		Console:     env.console,
		Diagnostics: env.diag,
	}
	require.NoError(t, env.c.Initialize())
	t.Cleanup(func() { _ = env.c.Close() })
	return env
}

func (e *testEnv) logger() *Logger {
	return e.c.Logger(LoggerConfig{})
}

func envLookup(env map[string]string) platform.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
