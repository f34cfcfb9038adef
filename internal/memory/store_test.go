package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(capacity int) (*Store, *mockClock) {
	clock := &mockClock{now: time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)}
	return NewStoreWithClock(capacity, clock), clock
}

func TestAdd_KeywordsAndCategory(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("我喜歡咖啡", "好的，記住了", DefaultImportance)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"我喜歡咖啡", "好的", "記住了"}, entries[0].Keywords)
	assert.Equal(t, "personal", entries[0].Category)
	assert.Equal(t, 0.5, entries[0].Importance)
}

func TestAdd_ClampsImportance(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("a", "b", 1.7)
	s.Add("c", "d", -0.3)

	entries := s.Entries()
	assert.Equal(t, 1.0, entries[0].Importance)
	assert.Equal(t, 0.0, entries[1].Importance)
}

func TestCategorize_Priority(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"明天天氣如何", "weather"},
		{"我明天的會議", "schedule"},
		{"寄信給老闆", "email"},
		{"My favourite color", "personal"},
		{"公司聚餐", "work"},
		{"hello", "general"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.input), tt.input)
	}
}

func TestPreferences_OverlapsPreserved(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("我的工作是工程師", "了解", DefaultImportance)
	s.Add("我叫小明", "你好", DefaultImportance)
	s.Add("我不喜歡下雨", "好", DefaultImportance)
	s.Add("我喜歡茶", "好", DefaultImportance)
	s.Add("我喜歡茶", "好", DefaultImportance)

	prefs := s.Preferences()
	assert.Equal(t, []string{"工作: 工程師"}, prefs["attributes"])
	assert.Equal(t, []string{"工程師"}, prefs["job"])
	assert.Equal(t, []string{"小明"}, prefs["name"])
	assert.Equal(t, []string{"下雨"}, prefs["dislikes"])
	assert.Equal(t, []string{"茶", "茶"}, prefs["likes"])
}

func TestPreferences_ResponseIgnored(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("你好", "我喜歡幫忙", DefaultImportance)
	assert.Empty(t, s.Preferences())
}

func TestFacts(t *testing.T) {
	s, clock := newTestStore(10)
	s.Add("2024年6月11日 14:30 產品會議", "OK", DefaultImportance)

	facts := s.Facts()
	require.Len(t, facts, 3)

	var contents []string
	for key, f := range facts {
		assert.Equal(t, clock.Now().Format(time.RFC3339Nano)+"_"+f.Content, key)
		assert.Equal(t, "2024年6月11日 14:30 產品會議", f.Context)
		contents = append(contents, f.Content)
	}
	assert.ElementsMatch(t, []string{"2024年6月11日", "14:30", "30 產品會議"}, contents)
}

func TestFacts_FullWidthDigits(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("２０２４年６月１１日 １４：３０ 出發", "", DefaultImportance)

	var contents []string
	for _, f := range s.Facts() {
		contents = append(contents, f.Content)
	}
	assert.ElementsMatch(t, []string{"２０２４年６月１１日", "１４：３０"}, contents)
}

func TestFacts_ContextTruncated(t *testing.T) {
	s, _ := newTestStore(10)
	long := ""
	for range 120 {
		long += "字"
	}
	s.Add(long+" 12:00", "", DefaultImportance)

	for _, f := range s.Facts() {
		assert.Equal(t, 100, len([]rune(f.Context)))
	}
}

func TestEviction_ImportanceBeforeRecency(t *testing.T) {
	s, clock := newTestStore(3)
	for i, imp := range []float64{0.9, 0.1, 0.5, 0.8, 0.2} {
		s.Add(fmt.Sprintf("entry %d", i), "ok", imp)
		clock.Advance(time.Minute)
		assert.LessOrEqual(t, s.Len(), 3)
		assert.Equal(t, min(i+1, 3), s.Len())
	}

	var kept []float64
	for _, e := range s.Entries() {
		kept = append(kept, e.Importance)
	}
	assert.Equal(t, []float64{0.9, 0.8, 0.5}, kept)
}

func TestEviction_TieKeepsNewest(t *testing.T) {
	s, clock := newTestStore(2)
	for i := range 3 {
		s.Add(fmt.Sprintf("entry %d", i), "ok", DefaultImportance)
		clock.Advance(time.Minute)
	}

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "entry 2", entries[0].UserInput)
	assert.Equal(t, "entry 1", entries[1].UserInput)
}

func TestRelevant_KeywordGated(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("明天 開會 討論預算", "好的", 0.5)
	s.Add("天氣 如何", "晴天", 1.0)

	got := s.Relevant("明天 開會", 5)
	assert.Equal(t, []string{"[06-11 09:00] 用戶: 明天 開會 討論預算..."}, got)

	scored := s.Score("明天 開會", 5)
	require.Len(t, scored, 1)
	assert.InDelta(t, 0.7*2.0/4.0+0.3*0.5, scored[0].Score, 1e-9)
}

func TestRelevant_LimitAndOrdering(t *testing.T) {
	s, clock := newTestStore(20)
	for i := range 8 {
		s.Add("明天開會", "好", float64(i)/10)
		clock.Advance(time.Minute)
	}
	s.Add("完全無關的內容", "嗯", 1.0)

	scored := s.Score("明天開會", 5)
	require.Len(t, scored, 5)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}
	assert.Equal(t, 0.7, scored[0].Entry.Importance)
	for _, sc := range scored {
		assert.Contains(t, sc.Entry.Keywords, "明天開會")
	}
	assert.Len(t, s.Relevant("明天開會", 5), 5)
}

func TestRelevant_TruncatesInput(t *testing.T) {
	s, _ := newTestStore(10)
	input := "預算 "
	for range 60 {
		input += "好"
	}
	s.Add(input, "", 0.5)

	got := s.Relevant("預算", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "[06-11 09:00] 用戶: "+string([]rune(input)[:50])+"...", got[0])
}

func TestRelevant_Empty(t *testing.T) {
	s, _ := newTestStore(10)
	assert.Empty(t, s.Relevant("anything", 5))
}

func TestRecent(t *testing.T) {
	s, clock := newTestStore(10)
	s.Add("first", "", 0.5)
	clock.Advance(2 * time.Hour)
	s.Add("second", "", 0.5)
	clock.Advance(23 * time.Hour)

	recent := s.Recent(24)
	require.Len(t, recent, 1)
	assert.Equal(t, "second", recent[0].UserInput)

	all := s.Recent(48)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].UserInput)
	assert.Equal(t, "first", all[1].UserInput)
}

func TestSearch(t *testing.T) {
	s, clock := newTestStore(10)
	s.Add("Project kickoff", "noted", 0.5)
	clock.Advance(time.Minute)
	s.Add("午餐", "the project lunch", 0.5)
	clock.Advance(time.Minute)
	s.Add("無關", "無關", 0.5)

	got := s.Search("PROJECT")
	require.Len(t, got, 2)
	assert.Equal(t, "午餐", got[0].UserInput)
	assert.Equal(t, "Project kickoff", got[1].UserInput)
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(10)
	empty := s.Stats()
	assert.Equal(t, Stats{Categories: map[string]int{}}, empty)

	s.Add("台北天氣", "晴", 0.4)
	s.Add("我喜歡茶", "好", 0.8)

	st := s.Stats()
	assert.Equal(t, 2, st.TotalMemories)
	assert.Equal(t, map[string]int{"weather": 1, "personal": 1}, st.Categories)
	assert.InDelta(t, 0.6, st.AverageImportance, 1e-9)
	assert.Equal(t, 1, st.PreferencesCount)
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("我喜歡茶 12:00", "好", 0.5)
	s.Clear()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Preferences())
	assert.Empty(t, s.Facts())
}

func TestExportImport_Empty(t *testing.T) {
	src, _ := newTestStore(10)
	data, err := src.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"export_timestamp"`)

	dst, _ := newTestStore(10)
	require.True(t, dst.Import(data))
	assert.Zero(t, dst.Len())
	assert.Empty(t, dst.Preferences())
	assert.Empty(t, dst.Facts())
}

func TestExportImport_RoundTrip(t *testing.T) {
	src, clock := newTestStore(10)
	src.Add("我喜歡咖啡", "好的 <noted>", 0.5)
	clock.Advance(time.Hour)
	src.Add("2024年6月11日 產品會議", "已記錄", 0.9)

	data, err := src.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<noted>")

	dst, _ := newTestStore(10)
	require.True(t, dst.Import(data))
	assert.Equal(t, src.Entries(), dst.Entries())
	assert.Equal(t, src.Preferences(), dst.Preferences())
	assert.Equal(t, src.Facts(), dst.Facts())
}

func TestImport_InvalidLeavesStateUntouched(t *testing.T) {
	s, _ := newTestStore(10)
	s.Add("我喜歡茶", "好", 0.5)

	for _, data := range []string{"{not json", "null", " null\n", "[]", `"memories"`, "42", ""} {
		assert.False(t, s.Import([]byte(data)), "%q", data)
		assert.Equal(t, 1, s.Len(), "%q", data)
		assert.Equal(t, []string{"茶"}, s.Preferences()["likes"], "%q", data)
	}
}

func TestRestore_CopiesSnapshot(t *testing.T) {
	s, clock := newTestStore(10)
	snap := Snapshot{
		Memories: []Entry{{
			Timestamp:  clock.Now(),
			UserInput:  "我喜歡咖啡",
			Importance: 0.5,
			Keywords:   []string{"咖啡"},
			Category:   "preferences",
		}},
		UserPreferences: Preferences{"likes": {"咖啡"}},
		ImportantFacts:  map[string]Fact{"k": {Content: "14:30"}},
	}
	s.Restore(snap)

	snap.Memories[0].UserInput = "changed"
	snap.Memories[0].Keywords[0] = "changed"
	snap.UserPreferences["likes"][0] = "changed"
	snap.UserPreferences["dislikes"] = []string{"changed"}
	snap.ImportantFacts["other"] = Fact{Content: "changed"}

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "我喜歡咖啡", entries[0].UserInput)
	assert.Equal(t, []string{"咖啡"}, entries[0].Keywords)
	assert.Equal(t, Preferences{"likes": {"咖啡"}}, s.Preferences())
	assert.Len(t, s.Facts(), 1)
}

func TestConcurrentAdd(t *testing.T) {
	s, _ := newTestStore(50)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(fmt.Sprintf("訊息 %d", i), "ok", 0.5)
			s.Relevant("訊息", 5)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}
