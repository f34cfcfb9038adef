package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/aide/internal/assistant"
	"github.com/kalambet/aide/internal/composer"
	"github.com/kalambet/aide/internal/storage"
)

type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (g *echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return "好的", nil
}

func (g *echoGenerator) last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[len(g.prompts)-1]
}

type fixedWeather struct{}

func (fixedWeather) Report(ctx context.Context, city string) string {
	return city + " 晴"
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	st, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen_NewAndExisting(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})

	s, err := m.Open("")
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)

	again, err := m.Open(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 1, m.Len())

	_, err = m.Open("not-a-uuid")
	assert.Error(t, err)
}

func TestGetAndEnd(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})
	s, err := m.Open("")
	require.NoError(t, err)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.End(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.End(s.ID), ErrNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})
	a, _ := m.Open("")
	b, _ := m.Open("")

	a.Handle(context.Background(), "明天下午2點安排與客戶的會議")

	assert.Equal(t, 1, a.Calendar().Len())
	assert.Equal(t, 0, b.Calendar().Len())
	assert.Equal(t, 1, a.Memory().Len())
	assert.Equal(t, 0, b.Memory().Len())
}

func TestHandle_RecordsTurnAndMemory(t *testing.T) {
	gen := &echoGenerator{}
	m := NewManager(Options{Generator: gen, Weather: fixedWeather{}})
	s, _ := m.Open("")

	r := s.Handle(context.Background(), "高雄天氣如何？")

	assert.Equal(t, s.ID, r.SessionID)
	assert.Equal(t, "好的", r.Text)
	assert.True(t, r.Metadata.ToolUsed)
	assert.Equal(t, "高雄 晴", r.Metadata.ToolResult)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, composer.Turn{Role: composer.RoleUser, Content: "高雄天氣如何？"}, msgs[0])
	assert.Equal(t, composer.Turn{Role: composer.RoleAssistant, Content: "好的"}, msgs[1])

	entries := s.Memory().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "weather", entries[0].Category)
}

func TestHandle_BlankInputTouchesNothing(t *testing.T) {
	gen := &echoGenerator{}
	m := NewManager(Options{Generator: gen})
	s, _ := m.Open("")

	r := s.Handle(context.Background(), "  ")

	assert.Equal(t, assistant.EmptyInputReply, r.Text)
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, s.Memory().Len())
	assert.Empty(t, gen.prompts)
}

func TestHandle_PromptUsesMemoriesAndHistory(t *testing.T) {
	gen := &echoGenerator{}
	m := NewManager(Options{Generator: gen})
	s, _ := m.Open("")

	s.Handle(context.Background(), "我喜歡 咖啡 拿鐵")
	s.Handle(context.Background(), "推薦 咖啡 店家")

	p := gen.last()
	assert.Contains(t, p, "最近對話：")
	assert.Contains(t, p, "用戶: 我喜歡 咖啡 拿鐵")
	assert.Contains(t, p, "用戶: 推薦 咖啡 店家")
	assert.Contains(t, p, "] 用戶: 我喜歡 咖啡 拿鐵...")
}

func TestHandle_HistoryWindow(t *testing.T) {
	gen := &echoGenerator{}
	m := NewManager(Options{Generator: gen, HistoryRetained: 5, HistoryInPrompt: 3})
	s, _ := m.Open("")

	for _, in := range []string{"q-one", "q-two", "q-three"} {
		s.Handle(context.Background(), in)
	}

	// Messages so far: q-one, 好的, q-two, 好的, q-three. The prompt shows
	// the last three of the five passed along.
	p := gen.last()
	ctxPart := p[strings.Index(p, "最近對話："):]
	assert.NotContains(t, ctxPart, "q-one")
	assert.Contains(t, ctxPart, "用戶: q-two")
	assert.Contains(t, ctxPart, "用戶: q-three")
	assert.Len(t, s.Messages(), 6)
}

func TestClear(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})
	s, _ := m.Open("")
	s.Handle(context.Background(), "明天下午2點安排會議")

	s.Clear()

	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, s.Memory().Len())
	assert.Equal(t, 1, s.Calendar().Len(), "calendar survives a conversation clear")
}

func TestStatus(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})
	s, _ := m.Open("")
	s.Handle(context.Background(), "hello there")

	st := s.Status()
	assert.Equal(t, 2, st.Messages)
	assert.Equal(t, 1, st.Memories)
	assert.Equal(t, 1, st.RecentMemories)
	assert.Equal(t, map[string]bool{"weather": false, "calendar": true, "email": true}, st.Capabilities)
}

func TestRecorder_InteractionsAndSnapshots(t *testing.T) {
	st := openStore(t)
	m := NewManager(Options{Generator: &echoGenerator{}, Recorder: st})

	s, _ := m.Open("")
	id := s.ID
	s.Handle(context.Background(), "我喜歡爵士音樂")
	s.Handle(context.Background(), "寄信給老闆")

	recent, err := st.GetRecentInteractions(id, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "寄信給老闆", recent[0].UserInput)
	assert.Equal(t, "email", recent[0].IntentType)
	assert.Equal(t, "general", recent[1].IntentType)

	require.NoError(t, m.End(id))

	restored, err := m.Open(id)
	require.NoError(t, err)
	assert.NotSame(t, s, restored)
	assert.Equal(t, 2, restored.Memory().Len())
	assert.Equal(t, []string{"爵士音樂"}, restored.Memory().Preferences()["likes"])
	assert.Empty(t, restored.Messages(), "only memory is restored")
}

func TestForget(t *testing.T) {
	st := openStore(t)
	m := NewManager(Options{Generator: &echoGenerator{}, Recorder: st})

	s, _ := m.Open("")
	s.Handle(context.Background(), "hello there")
	require.NoError(t, m.End(s.ID))

	require.NoError(t, m.Forget(s.ID))

	n, err := st.CountInteractions(s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = st.LatestSnapshot(s.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})
	a, _ := m.Open("")
	b, _ := m.Open("")

	infos := m.List()
	require.Len(t, infos, 2)
	ids := []string{infos[0].ID, infos[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func TestConcurrentHandle(t *testing.T) {
	m := NewManager(Options{Generator: &echoGenerator{}})
	s, _ := m.Open("")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Handle(context.Background(), "hello world")
		}()
	}
	wg.Wait()

	assert.Len(t, s.Messages(), 40)
	assert.Equal(t, 20, s.Memory().Len())
}
