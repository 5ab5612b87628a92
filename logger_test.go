package edgelog

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Station-Manager/edgelog/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	levels := []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}
	emit := map[Level]func(*Logger, string){
		LevelDebug: func(l *Logger, m string) { l.Debug(m) },
		LevelInfo:  func(l *Logger, m string) { l.Info(m) },
		LevelWarn:  func(l *Logger, m string) { l.Warn(m) },
		LevelError: func(l *Logger, m string) { l.Error(m) },
	}

	for _, threshold := range append(levels, LevelOff) {
		t.Run("min="+threshold.String(), func(t *testing.T) {
			env := newTestEnv(t, networkConfig(), nil)
			log := env.c.Logger(LoggerConfig{Level: threshold})

			want := 0
			for _, lvl := range levels {
				emit[lvl](log, lvl.String())
				if lvl >= threshold {
					want++
				}
			}
			assert.Equal(t, want, env.client.total())
			for _, ev := range env.client.all("logs") {
				lvl, err := ParseLevel(ev[keyLevel].(string))
				require.NoError(t, err)
				assert.True(t, lvl >= threshold, "%s emitted below %s", lvl, threshold)
			}
		})
	}
}

func TestLevelFromConfig(t *testing.T) {
	cfg := networkConfig()
	cfg.Level = "warn"
	env := newTestEnv(t, cfg, nil)
	log := env.logger()

	log.Info("dropped")
	log.Warn("kept")
	require.Equal(t, 1, env.client.total())

	// a child level overrides the configured one
	log.With(LoggerConfig{Level: LevelDebug}).Debug("kept too")
	assert.Equal(t, 2, env.client.total())
}

func TestBelowThresholdHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t, consoleConfig(), nil)
	log := env.c.Logger(LoggerConfig{Level: LevelError})

	log.Debug("nothing", Fields{"a": 1})
	log.Warn("nothing", Err(stderrs.New("ignored")))
	assert.Empty(t, env.console.String())
	assert.Zero(t, env.client.total())
}

func TestWithMergesAndIsolates(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	parent := env.c.Logger(LoggerConfig{
		Args:   Fields{"service": "api", "region": "eu"},
		Level:  LevelInfo,
		Source: "edge",
	})

	child := parent.With(LoggerConfig{
		Args:  Fields{"region": "us", "tenant": 7},
		Level: LevelWarn,
	})

	got := child.Config()
	assert.Equal(t, Fields{"service": "api", "region": "us", "tenant": 7}, got.Args)
	assert.Equal(t, LevelWarn, got.Level)
	assert.Equal(t, "edge", got.Source, "unset overrides inherit")

	// mutating what the child exposes never reaches the parent
	got.Args["service"] = "mutated"
	assert.Equal(t, "api", parent.Config().Args["service"])
	assert.Equal(t, "api", child.Config().Args["service"])

	// mutating the override map after With has no effect either
	overrides := Fields{"k": "v"}
	c2 := parent.WithArgs(overrides)
	overrides["k"] = "changed"
	assert.Equal(t, "v", c2.Config().Args["k"])

	assert.Equal(t, Fields{"service": "api", "region": "eu"}, parent.Config().Args)
	assert.Equal(t, LevelInfo, parent.Config().Level)
}

func TestWithArgsChains(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	log := env.logger().WithArgs(Fields{"a": 1}).WithArgs(Fields{"b": 2})

	log.Info("hello", Fields{"c": 3})

	evs := env.client.all("logs")
	require.Len(t, evs, 1)
	fields := evs[0][keyFields].(map[string]any)
	assert.EqualValues(t, 1, fields["a"])
	assert.EqualValues(t, 2, fields["b"])
	assert.EqualValues(t, 3, fields["c"])
}

func TestCallSiteArgsOverrideDefaults(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	log := env.logger().WithArgs(Fields{"user": "default"})

	log.Info("x", Fields{"user": "call-site"})
	fields := env.client.all("logs")[0][keyFields].(map[string]any)
	assert.Equal(t, "call-site", fields["user"])
}

func TestErrorArgIsDecomposed(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	log := env.logger()

	cause := stderrs.New("connection refused")
	err := fmt.Errorf("query users: %w", cause)
	log.Error("db failure", Err(err))

	evs := env.client.all("logs")
	require.Len(t, evs, 1)
	fields := evs[0][keyFields].(map[string]any)

	assert.Equal(t, "query users: connection refused", fields["message"])
	assert.Equal(t, "*fmt.wrapError", fields["name"])
	stack, ok := fields["stack"].(string)
	require.True(t, ok)
	assert.Contains(t, stack, "TestErrorArgIsDecomposed")
	assert.NotContains(t, stack, "edgelog.(*Logger).log")
	assert.Equal(t, []any{"query users: connection refused", "connection refused"}, fields["error_chain"])
	assert.Equal(t, "connection refused", fields["error_root"])

	for _, v := range fields {
		_, isErr := v.(error)
		assert.False(t, isErr, "no error values may reach the client")
	}
}

func TestNilErrorArgIsIgnored(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	env.logger().Error("nothing wrong", Err(nil))

	evs := env.client.all("logs")
	require.Len(t, evs, 1)
	_, hasFields := evs[0][keyFields]
	assert.False(t, hasFields)
}

func TestRawArgs(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	log := env.logger()

	log.Info("one", Raw([]int{1, 2}))
	log.Info("two", Raw("a"), Raw(42))

	evs := env.client.all("logs")
	require.Len(t, evs, 2)
	assert.Equal(t, []any{int64(1), int64(2)}, evs[0][keyFields].(map[string]any)[keyArgs])
	assert.Equal(t, []any{"a", int64(42)}, evs[1][keyFields].(map[string]any)[keyArgs])
}

func TestReservedKeysAreDropped(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	env.logger().WithArgs(Fields{"level": "fake"}).Info("x", Fields{
		"_time":    "yesterday",
		"request":  "spoofed",
		"platform": "spoofed",
		"ok":       true,
	})

	ev := env.client.all("logs")[0]
	assert.Equal(t, "info", ev[keyLevel])
	assert.Equal(t, map[string]any{"ok": true}, ev[keyFields])
}

func TestNoCredentialsWritesConsole(t *testing.T) {
	env := newTestEnv(t, consoleConfig(), nil)
	env.logger().Info("x")

	assert.Equal(t, "info - x\n", env.console.String())
	assert.Zero(t, env.client.total(), "no network call without credentials")
	assert.False(t, env.c.NetworkEnabled())
}

func TestNetworkSkipsConsole(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	env.logger().Info("x")

	assert.Empty(t, env.console.String())
	require.Equal(t, 1, env.client.total())
	ev := env.client.all("logs")[0]
	assert.Equal(t, "x", ev[keyMessage])
	assert.Equal(t, "info", ev[keyLevel])
	assert.Contains(t, ev, keyTime)
}

func TestIngestFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	env.client.ingestErr = stderrs.New("quota exceeded")

	assert.NotPanics(t, func() { env.logger().Error("x") })
	assert.Contains(t, env.diag.String(), "failed to ingest log event")
	assert.Contains(t, env.diag.String(), "quota exceeded")
}

func TestIngestPanicIsRecovered(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	env.client.panicOnIngest = true

	assert.NotPanics(t, func() { env.logger().Info("x") })
	assert.Contains(t, env.diag.String(), "log delivery panicked")
}

func TestFlush(t *testing.T) {
	t.Run("delegates", func(t *testing.T) {
		env := newTestEnv(t, networkConfig(), nil)
		report := env.logger().Flush(context.Background())
		assert.True(t, report.OK())
		assert.Equal(t, 1, env.client.flushes)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		env := newTestEnv(t, networkConfig(), nil)
		env.client.flushErr = stderrs.New("network down")

		var report DeliveryReport
		assert.NotPanics(t, func() { report = env.logger().Flush(context.Background()) })
		assert.False(t, report.OK())
		assert.Contains(t, env.diag.String(), "failed to flush logs")
	})

	t.Run("panic is recovered", func(t *testing.T) {
		env := newTestEnv(t, networkConfig(), nil)
		env.client.panicOnFlush = true

		report := env.logger().Flush(context.Background())
		require.Error(t, report.Err)
		assert.Contains(t, report.Err.Error(), "flush exploded")
	})

	t.Run("console mode has nothing to flush", func(t *testing.T) {
		env := newTestEnv(t, consoleConfig(), nil)
		assert.True(t, env.logger().Flush(context.Background()).OK())
		assert.Zero(t, env.client.flushes)
	})
}

func TestChildrenBookkeeping(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	root := env.logger()

	a := root.WithArgs(Fields{"a": 1})
	b := root.WithRequest(RequestReport{Path: "/"})
	_ = a.With(LoggerConfig{Source: "edge"})

	children := root.Children()
	require.Len(t, children, 2)
	assert.Same(t, a, children[0])
	assert.Same(t, b, children[1])
	assert.Len(t, a.Children(), 1)

	f := root.Fork(LoggerConfig{Args: Fields{"req": 1}})
	assert.Len(t, root.Children(), 2, "forks are not retained")
	assert.Equal(t, Fields{"req": 1}, f.Config().Args)

	var nilLogger *Logger
	assert.NotNil(t, nilLogger.Fork(LoggerConfig{}))
}

func TestWithRequest(t *testing.T) {
	t.Run("without platform metadata", func(t *testing.T) {
		env := newTestEnv(t, networkConfig(), nil)
		log := env.logger().WithRequest(RequestReport{Method: "GET", Path: "/users/42", IP: "10.0.0.1"})
		log.Info("served")

		ev := env.client.all("logs")[0]
		req, ok := ev[keyRequest].(RequestReport)
		require.True(t, ok)
		assert.Equal(t, "GET", req.Method)
		assert.Equal(t, "/users/42", req.Path)
		assert.NotContains(t, ev, keyPlatform)
	})

	t.Run("route lands in platform section", func(t *testing.T) {
		provider := platform.NewVercel(envLookup(map[string]string{"VERCEL": "1", "VERCEL_REGION": "fra1"}))
		env := newTestEnv(t, networkConfig(), provider)

		log := env.c.Logger(LoggerConfig{Source: "lambda"}).
			WithRequest(RequestReport{Method: "GET", Path: "/users/42", Route: "/users/{id}", Host: "example.com"})
		log.Info("served")

		ev := env.client.all("logs")[0]
		info, ok := ev[keyPlatform].(platform.Info)
		require.True(t, ok)
		assert.Equal(t, "vercel", info.Provider)
		assert.Equal(t, "lambda", info.Source)
		assert.Equal(t, "fra1", info.Region)
		assert.Equal(t, "/users/{id}", info.Route)
		assert.Equal(t, "example.com", info.Host)
	})

	t.Run("request is copied", func(t *testing.T) {
		env := newTestEnv(t, networkConfig(), nil)
		req := RequestReport{Path: "/a"}
		log := env.logger().WithRequest(req)
		req.Path = "/b"
		log.Info("x")
		assert.Equal(t, "/a", env.client.all("logs")[0][keyRequest].(RequestReport).Path)
	})
}

func TestNopLogger(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Info("x", Fields{"a": 1})
		log.With(LoggerConfig{}).Error("y", Err(stderrs.New("z")))
		assert.True(t, log.Flush(context.Background()).OK())
	})
	assert.False(t, log.Enabled(LevelError))

	var nilLogger *Logger
	assert.NotPanics(t, func() {
		nilLogger.Info("x")
		nilLogger.WithArgs(Fields{"a": 1}).Warn("y")
	})
}

func TestLoggerAfterCloseWritesConsole(t *testing.T) {
	t.Run("console config", func(t *testing.T) {
		env := newTestEnv(t, consoleConfig(), nil)
		log := env.logger()
		require.NoError(t, env.c.Close())

		log.Error("late")
		log.Debug("debug after close", Fields{"n": 1})
		assert.Equal(t, "error - late\ndebug - debug after close {\"n\":1}\n", env.console.String())
	})

	t.Run("network config", func(t *testing.T) {
		cfg := networkConfig()
		cfg.NoPrettyPrint = true
		env := newTestEnv(t, cfg, nil)
		log := env.logger()
		require.NoError(t, env.c.Close())

		log.Warn("shutting down")
		assert.Zero(t, env.client.total(), "the client is not used after close")
		assert.Equal(t, "warn - shutting down\n", env.console.String())
	})

	t.Run("never initialized", func(t *testing.T) {
		c := &Configurator{Config: consoleConfig(), Console: &syncBuffer{}}
		require.NoError(t, c.Close())
		assert.False(t, c.Logger(LoggerConfig{}).Enabled(LevelError))
	})
}

func TestConcurrentLogging(t *testing.T) {
	env := newTestEnv(t, networkConfig(), nil)
	root := env.logger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := root.WithArgs(Fields{"worker": i})
			for j := 0; j < 50; j++ {
				child.Info("tick", Fields{"j": j})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 400, env.client.total())
	assert.Len(t, root.Children(), 8)
}

func TestContextPropagation(t *testing.T) {
	env := newTestEnv(t, consoleConfig(), nil)
	log := env.logger().WithArgs(Fields{"request_id": "r1"})

	ctx := NewContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))

	FromContext(context.Background()).Info("discarded")
	assert.Empty(t, env.console.String())

	FromContext(ctx).Info("kept")
	assert.True(t, strings.HasPrefix(env.console.String(), "info - kept"))
}
