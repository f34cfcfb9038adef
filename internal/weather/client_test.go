package weather

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key", srv.URL, timeout)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestReport_Success(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("path = %q, want /weather", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"main":{"temp":22.4,"feels_like":23.6,"humidity":85,"pressure":1013},
			"weather":[{"main":"Rain","description":"light rain"}],"wind":{"speed":3.26}}`)
	}, 0)

	got := c.Report(context.Background(), "台北")

	for _, want := range []string{"q=Taipei", "units=metric", "lang=zh_tw", "appid=test-key"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	for _, want := range []string{
		"**台北 天氣資訊**",
		"22°C (體感 24°C)",
		"下雨 🌧️",
		"85%",
		"3.3 m/s",
		"1013 hPa",
		"2024-06-11 14:30",
		"氣溫舒適，是外出的好天氣！ 記得帶雨具！ 濕度較高",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestReport_NoWind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"main":{"temp":5,"feels_like":2,"humidity":50,"pressure":1020},
			"weather":[{"main":"Clear","description":"clear sky"}]}`)
	}, 0)

	got := c.Report(context.Background(), "Tokyo")
	if !strings.Contains(got, "無風") {
		t.Errorf("expected 無風 for missing wind, got:\n%s", got)
	}
	if !strings.Contains(got, "晴朗 ☀️") {
		t.Errorf("expected translated description, got:\n%s", got)
	}
}

func TestReport_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, 0)

	got := c.Report(context.Background(), "火星")
	if got != "❌ 找不到城市「火星」的天氣資訊" {
		t.Errorf("got %q", got)
	}
}

func TestReport_OtherStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, 0)

	got := c.Report(context.Background(), "台北")
	if got != "❌ 無法獲取天氣資訊，API 返回錯誤: 401" {
		t.Errorf("got %q", got)
	}
}

func TestReport_MissingField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"weather":[{"main":"Clear","description":"clear sky"}]}`)
	}, 0)

	got := c.Report(context.Background(), "台北")
	if !strings.HasPrefix(got, "❌ 解析天氣資料時發生錯誤，缺少欄位") {
		t.Errorf("got %q", got)
	}
}

func TestReport_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)

	got := c.Report(context.Background(), "台北")
	if got != "❌ 天氣API請求超時，請稍後再試" {
		t.Errorf("got %q", got)
	}
}

func TestReport_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient("test-key", url, time.Second)
	got := c.Report(context.Background(), "台北")
	if !strings.HasPrefix(got, "❌ 網路連接錯誤: ") {
		t.Errorf("got %q", got)
	}
}

func TestReport_MockWithoutKey(t *testing.T) {
	c := NewClient("", "", 0)
	c.now = func() time.Time { return fixedNow }
	c.rng = rand.New(rand.NewPCG(1, 2))

	if c.Live() {
		t.Fatal("client without key should not be live")
	}
	got := c.Report(context.Background(), "高雄")
	if !strings.Contains(got, "**高雄 天氣資訊** (模擬資料)") {
		t.Errorf("mock report header missing:\n%s", got)
	}
	if !strings.Contains(got, "💡 **貼心提醒**") {
		t.Errorf("mock report advice missing:\n%s", got)
	}
}

func TestForecast(t *testing.T) {
	c := NewClient("", "", 0)
	got := c.Forecast("台北", 0)
	if !strings.HasPrefix(got, "📅 **台北 5天天氣預報**") {
		t.Errorf("got %q", got)
	}
}

func TestAdvice(t *testing.T) {
	tests := []struct {
		temp      int
		condition string
		humidity  int
		want      string
	}{
		{5, "snow", 50, "💡 **貼心提醒**: 氣溫較低，記得多穿衣保暖！ 路面可能濕滑，注意安全！"},
		{35, "clear", 20, "💡 **貼心提醒**: 氣溫較高，注意防曬和補水！ 濕度較低，記得補充水分。"},
		{12, "Thunderstorm", 60, "💡 **貼心提醒**:  有雷雨，避免戶外活動！"},
		{20, "drizzle", 90, "💡 **貼心提醒**: 氣溫舒適，是外出的好天氣！ 記得帶雨具！ 濕度較高，可能會感覺悶熱。"},
	}
	for _, tt := range tests {
		if got := Advice(tt.temp, tt.condition, tt.humidity); got != tt.want {
			t.Errorf("Advice(%d, %q, %d) = %q, want %q", tt.temp, tt.condition, tt.humidity, got, tt.want)
		}
	}
}
