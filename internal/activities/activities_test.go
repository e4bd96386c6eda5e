package activities

import (
	"context"
	"sync"
	"testing"
	"time"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/pack"
	"automata/internal/platform"
	"automata/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// FAKES
// =============================================================================

type fakeContent map[string][]string

func (c fakeContent) List(category string) []string { return c[category] }

func (c fakeContent) Choose(category string, rnd *types.Rand) (string, bool) {
	items := c[category]
	if len(items) == 0 {
		return "", false
	}
	return items[rnd.IntN(len(items))], true
}

func fullContent() fakeContent {
	return fakeContent{
		pack.Images:     {"/p/images/a.png"},
		pack.Gifs:       {"/p/gifs/a.gif"},
		pack.Wallpapers: {"/p/wallpapers/w.jpg"},
		pack.Prompts:    {"I will behave"},
		pack.Buttons:    {"sorry"},
		pack.Webs:       {"https://example.com"},
	}
}

type shown struct {
	pres   Presentation
	ev     Events
	closed bool
}

type fakeDisplay struct {
	mu    sync.Mutex
	shown map[string]*shown
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{shown: make(map[string]*shown)}
}

func (d *fakeDisplay) Present(p Presentation, ev Events) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &shown{pres: p, ev: ev}
	d.shown[p.InstanceID] = s
	return fakeHandle{d: d, s: s}, nil
}

func (d *fakeDisplay) get(id string) *shown {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown[id]
}

func (d *fakeDisplay) isClosed(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.shown[id]
	return ok && s.closed
}

type fakeHandle struct {
	d *fakeDisplay
	s *shown
}

func (h fakeHandle) Close() error {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	h.s.closed = true
	return nil
}

type fakeSession struct{ closed chan struct{} }

func (s *fakeSession) Close() error {
	close(s.closed)
	return nil
}

type fakeBrowser struct {
	mu      sync.Mutex
	url     string
	private bool
	session *fakeSession
}

func (b *fakeBrowser) Open(url string, private bool) (platform.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url, b.private = url, private
	b.session = &fakeSession{closed: make(chan struct{})}
	return b.session, nil
}

type harness struct {
	cfg     *config.Config
	display *fakeDisplay
	wp      platform.Wallpaper
	browser *fakeBrowser
	sched   *core.Scheduler

	reloads   chan struct{}
	shutdowns chan struct{}
}

func newHarness(t *testing.T, cfg *config.Config, guardian *platform.Guardian) *harness {
	t.Helper()
	h := &harness{
		cfg:       cfg,
		display:   newFakeDisplay(),
		wp:        platform.NewMemoryWallpaper("/home/old.png"),
		browser:   &fakeBrowser{},
		reloads:   make(chan struct{}, 8),
		shutdowns: make(chan struct{}, 8),
	}
	if guardian == nil {
		guardian = platform.NewGuardian("")
	}

	reg, err := Build(fullContent(), Deps{
		Config:     cfg,
		ConfigPath: "/etc/automata.yaml",
		Display:    h.display,
		Guardian:   guardian,
		Wallpaper:  h.wp,
		Browser:    h.browser,
	})
	require.NoError(t, err)

	h.sched = core.NewScheduler(core.Options{
		Registry:      reg,
		Rand:          types.NewRand(11),
		ShutdownGrace: 2 * time.Second,
	})
	h.sched.SetHooks(core.Hooks{
		Reload:   func() { h.reloads <- struct{}{} },
		Shutdown: func() { h.shutdowns <- struct{}{} },
	})
	t.Cleanup(func() { _ = h.sched.Shutdown(context.Background()) })
	return h
}

func (h *harness) launch(t *testing.T, name string) *core.Instance {
	t.Helper()
	inst, err := h.sched.Launch(context.Background(), name, types.SourceManual)
	require.NoError(t, err)
	require.NotNil(t, inst)
	return inst
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestBuild(t *testing.T) {
	h := newHarness(t, config.DefaultConfig(), nil)
	reg := h.sched.Registry()

	assert.Equal(t, Names(), reg.Names())
	assert.Equal(t, []string{"image", "gif", "prompt", "wallpaper", "web"}, reg.Launchable())

	panicKind, err := reg.Resolve(core.PanicKind)
	require.NoError(t, err)
	assert.True(t, panicKind.Exclusive)
	assert.Equal(t, types.MustRange(30, 30), panicKind.Timeout)

	empty, err := Build(fakeContent{pack.Prompts: {"x"}}, Deps{Config: config.DefaultConfig()})
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt"}, empty.Launchable())
}

func TestPopup_DismissReplicates(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Activities.Image.Denial.Enabled = false
	cfg.Activities.Image.Mitosis = config.ProbabilityConfig{Enabled: true, Probability: 1}
	cfg.Activities.Image.MitosisCount = config.RangeConfig{Minimum: 1, Maximum: 1}
	cfg.Activities.Image.Timeout = config.RangeConfig{}
	h := newHarness(t, cfg, nil)

	inst := h.launch(t, "image")
	s := h.display.get(inst.ID())
	require.NotNil(t, s)
	assert.Equal(t, "/p/images/a.png", s.pres.Content)
	assert.Equal(t, "sorry", s.pres.Button)
	assert.GreaterOrEqual(t, s.pres.Alpha, 50)

	s.ev.DismissRequested()
	<-inst.Done()
	assert.Equal(t, types.StopDismissed, inst.Reason())
	assert.True(t, h.display.isClosed(inst.ID()))

	require.Eventually(t, func() bool {
		return h.sched.LiveCount("image") == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPopup_DenialIgnoresDismiss(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Activities.Gif.Denial = config.ProbabilityConfig{Enabled: true, Probability: 1}
	h := newHarness(t, cfg, nil)

	inst := h.launch(t, "gif")
	h.display.get(inst.ID()).ev.DismissRequested()
	assert.True(t, inst.Running())
}

func TestPrompt(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Activities.Prompt.Mistakes = config.RangeConfig{Minimum: 1, Maximum: 1}
	cfg.Activities.Prompt.Mitosis = config.ProbabilityConfig{Enabled: true, Probability: 1}
	cfg.Activities.Prompt.MitosisCount = config.RangeConfig{Minimum: 1, Maximum: 1}
	cfg.Activities.Prompt.Track.Enabled = false
	h := newHarness(t, cfg, nil)

	inst := h.launch(t, "prompt")
	s := h.display.get(inst.ID())
	require.NotNil(t, s)
	assert.Equal(t, "I will behave", s.pres.Text)
	assert.True(t, s.pres.Input)
	assert.False(t, s.pres.Track)

	s.ev.Completed("I wont behave")
	assert.True(t, inst.Running(), "wrong answer keeps the prompt")
	require.Eventually(t, func() bool {
		return h.sched.LiveCount("prompt") == 2
	}, 2*time.Second, 5*time.Millisecond, "wrong answer replicates")

	s.ev.Completed("  I will behav  ")
	<-inst.Done()
	assert.Equal(t, types.StopCompleted, inst.Reason())
}

func TestPrompt_Tracked(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Activities.Prompt.Track = config.ProbabilityConfig{Enabled: true, Probability: 1}
	cfg.Activities.Prompt.Mistakes = config.RangeConfig{Minimum: 3, Maximum: 3}
	cfg.Activities.Prompt.Mitosis = config.ProbabilityConfig{Enabled: true, Probability: 1}
	h := newHarness(t, cfg, nil)

	inst := h.launch(t, "prompt")
	s := h.display.get(inst.ID())
	require.NotNil(t, s)
	assert.True(t, s.pres.Track)

	// Close enough for an untracked prompt, but tracking wants the exact text.
	s.ev.Completed("I will behav")
	assert.True(t, inst.Running())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.sched.LiveCount("prompt"), "a tracked prompt never replicates")

	s.ev.Completed("I will behave")
	<-inst.Done()
	assert.Equal(t, types.StopCompleted, inst.Reason())
}

func TestCheckTyped(t *testing.T) {
	tests := []struct {
		typed string
		want  Typed
	}{
		{"", TypedPrefix},
		{"I w", TypedPrefix},
		{"I x", TypedWrong},
		{"I will behave!", TypedWrong},
		{"I will behave", TypedExact},
	}
	for _, tt := range tests {
		t.Run(tt.typed, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckTyped("I will behave", tt.typed))
		})
	}
}

func TestPresented_TeardownBeforePresentClosesHandle(t *testing.T) {
	d := newFakeDisplay()
	p := &presented{display: d}

	require.NoError(t, p.Teardown())
	require.NoError(t, p.present(Presentation{InstanceID: "late", Kind: "image"}, nil))
	assert.True(t, d.isClosed("late"), "a row presented after teardown is closed at once")
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"héllo", "hello", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, Distance(tt.b, tt.a))
		})
	}

	assert.True(t, Accepts("obey", " obey\n", 0))
	assert.False(t, Accepts("obey", "obay", 0))
	assert.True(t, Accepts("obey", "obay", 1))
}

func TestWallpaper(t *testing.T) {
	t.Run("restored on stop", func(t *testing.T) {
		h := newHarness(t, config.DefaultConfig(), nil)
		inst := h.launch(t, "wallpaper")

		cur, _ := h.wp.Get()
		assert.Equal(t, "/p/wallpapers/w.jpg", cur)

		inst.Stop(types.StopTimeout)
		cur, _ = h.wp.Get()
		assert.Equal(t, "/home/old.png", cur)
	})

	t.Run("restored on shutdown", func(t *testing.T) {
		h := newHarness(t, config.DefaultConfig(), nil)
		h.launch(t, "wallpaper")

		require.NoError(t, h.sched.Shutdown(context.Background()))
		cur, _ := h.wp.Get()
		assert.Equal(t, "/home/old.png", cur)
	})

	t.Run("pool of one", func(t *testing.T) {
		h := newHarness(t, config.DefaultConfig(), nil)
		h.launch(t, "wallpaper")
		second, err := h.sched.Launch(context.Background(), "wallpaper", types.SourceManual)
		require.NoError(t, err)
		assert.Nil(t, second)
	})
}

func TestWeb(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Activities.Web.Private = config.ProbabilityConfig{Enabled: true, Probability: 1}
	h := newHarness(t, cfg, nil)

	inst := h.launch(t, "web")
	h.browser.mu.Lock()
	assert.Equal(t, "https://example.com", h.browser.url)
	assert.True(t, h.browser.private)
	session := h.browser.session
	h.browser.mu.Unlock()

	inst.Stop(types.StopTimeout)
	waitFor(t, session.closed, "private session close")
}

func TestPanic(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmeout"), bcrypt.MinCost)
	require.NoError(t, err)
	h := newHarness(t, config.DefaultConfig(), platform.NewGuardian(string(hash)))

	inst := h.launch(t, core.PanicKind)
	assert.True(t, h.sched.Guard().ExclusiveHeld())

	s := h.display.get(inst.ID())
	require.NotNil(t, s)
	assert.True(t, s.pres.Secret)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), s.pres.Deadline, 2*time.Second)

	s.ev.Completed("wrong")
	assert.True(t, inst.Running())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.sched.LiveCount(""), "random launch waits for the lock")

	s.ev.Completed("letmeout")
	<-inst.Done()
	assert.Equal(t, types.StopCompleted, inst.Reason())
	waitFor(t, h.shutdowns, "shutdown request")
	assert.Equal(t, 0, h.sched.LiveCount(core.PanicKind))
}

func TestPanic_EscapeCancels(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("x"), bcrypt.MinCost)
	require.NoError(t, err)
	h := newHarness(t, config.DefaultConfig(), platform.NewGuardian(string(hash)))

	inst := h.launch(t, core.PanicKind)
	h.display.get(inst.ID()).ev.DismissRequested()
	<-inst.Done()
	assert.Equal(t, types.StopCancelled, inst.Reason())
}

func TestPanic_NoPasswordShutsDown(t *testing.T) {
	h := newHarness(t, config.DefaultConfig(), nil)
	h.launch(t, core.PanicKind)
	waitFor(t, h.shutdowns, "shutdown request")
}

func TestConfiguration(t *testing.T) {
	h := newHarness(t, config.DefaultConfig(), nil)

	inst := h.launch(t, "configuration")
	s := h.display.get(inst.ID())
	require.NotNil(t, s)
	assert.Equal(t, "/etc/automata.yaml", s.pres.Content)
	assert.True(t, h.sched.Guard().ExclusiveHeld())

	s.ev.Completed("")
	<-inst.Done()
	waitFor(t, h.reloads, "reload request")
	assert.False(t, h.sched.Guard().ExclusiveHeld())

	again := h.launch(t, "configuration")
	h.display.get(again.ID()).ev.DismissRequested()
	<-again.Done()
	assert.Equal(t, types.StopCancelled, again.Reason())
	assert.Empty(t, h.reloads)
}

func TestLogDisplay(t *testing.T) {
	handle, err := LogDisplay{}.Present(Presentation{InstanceID: "0123456789", Kind: "image"}, nil)
	require.NoError(t, err)
	assert.NoError(t, handle.Close())
	assert.NoError(t, handle.Close())
}
