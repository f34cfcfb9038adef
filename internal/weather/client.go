// Package weather reports current conditions for a city from an
// OpenWeatherMap-compatible endpoint, falling back to randomised mock data
// when no API key is configured. Every outcome, including failures, is
// rendered as a display string.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "http://api.openweathermap.org/data/2.5"
	defaultTimeout = 10 * time.Second
)

// cityNames maps the Chinese gazetteer spelling to the name the API expects.
var cityNames = map[string]string{
	"台北": "Taipei", "台中": "Taichung", "台南": "Tainan", "高雄": "Kaohsiung",
	"桃園": "Taoyuan", "新竹": "Hsinchu", "台東": "Taitung", "花蓮": "Hualien",
	"香港": "Hong Kong", "澳門": "Macau", "北京": "Beijing", "上海": "Shanghai",
	"廣州": "Guangzhou", "深圳": "Shenzhen", "東京": "Tokyo", "大阪": "Osaka",
	"首爾": "Seoul", "新加坡": "Singapore", "曼谷": "Bangkok",
}

// Client queries current weather.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewClient creates a weather client. An empty apiKey switches the client to
// mock data; an empty baseURL or zero timeout selects the defaults.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Live reports whether the client talks to the real API.
func (c *Client) Live() bool {
	return c.apiKey != ""
}

// Report returns a formatted weather report for city.
func (c *Client) Report(ctx context.Context, city string) string {
	if !c.Live() {
		return c.mockReport(city)
	}

	query := city
	if en, ok := cityNames[city]; ok {
		query = en
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	params.Set("lang", "zh_tw")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return fmt.Sprintf("❌ 獲取天氣資訊時發生錯誤: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			slog.Warn("weather request timed out", "city", city)
			return "❌ 天氣API請求超時，請稍後再試"
		}
		slog.Warn("weather request failed", "city", city, "error", err)
		return fmt.Sprintf("❌ 網路連接錯誤: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Sprintf("❌ 找不到城市「%s」的天氣資訊", city)
	default:
		return fmt.Sprintf("❌ 無法獲取天氣資訊，API 返回錯誤: %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Sprintf("❌ 獲取天氣資訊時發生錯誤: %v", err)
	}
	return c.format(data, city)
}

// Forecast is a placeholder; multi-day forecasts need a paid API plan.
func (c *Client) Forecast(city string, days int) string {
	if days <= 0 {
		days = 5
	}
	return fmt.Sprintf("📅 **%s %d天天氣預報**\n\n⚠️ 此功能需要升級API方案，目前僅提供當日天氣查詢。", city, days)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type apiResponse struct {
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        *string `json:"main"`
		Description *string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// missingField returns the name of the first required field absent from d.
func (d apiResponse) missingField() string {
	switch {
	case d.Main == nil:
		return "main"
	case len(d.Weather) == 0:
		return "weather"
	case d.Main.Temp == nil:
		return "temp"
	case d.Main.FeelsLike == nil:
		return "feels_like"
	case d.Main.Humidity == nil:
		return "humidity"
	case d.Main.Pressure == nil:
		return "pressure"
	case d.Weather[0].Description == nil:
		return "description"
	case d.Weather[0].Main == nil:
		return "main"
	}
	return ""
}

func (c *Client) format(d apiResponse, city string) string {
	if field := d.missingField(); field != "" {
		return fmt.Sprintf("❌ 解析天氣資料時發生錯誤，缺少欄位: '%s'", field)
	}

	temp := int(math.RoundToEven(*d.Main.Temp))
	feels := int(math.RoundToEven(*d.Main.FeelsLike))
	humidity := *d.Main.Humidity
	condition := strings.ToLower(*d.Weather[0].Main)

	described, ok := descriptions[strings.ToLower(*d.Weather[0].Description)]
	if !ok {
		described = translateCondition(condition)
	}

	wind := "無風"
	if d.Wind != nil && d.Wind.Speed > 0 {
		wind = fmt.Sprintf("%.1f m/s", d.Wind.Speed)
	}

	return fmt.Sprintf(`🌤️ **%s 天氣資訊**

🌡️ **溫度**: %d°C (體感 %d°C)
☁️ **天氣**: %s
💧 **濕度**: %s%%
🌬️ **風速**: %s
📊 **氣壓**: %s hPa

📅 **更新時間**: %s

%s`,
		city, temp, feels, described, number(humidity), wind, number(*d.Main.Pressure),
		c.now().Format("2006-01-02 15:04"),
		Advice(temp, condition, int(humidity)))
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type mockCondition struct {
	label, code string
}

var (
	mockTemps      = []int{18, 22, 25, 28, 15, 20, 24, 26}
	mockConditions = []mockCondition{
		{"晴朗 ☀️", "clear"},
		{"多雲 ☁️", "cloudy"},
		{"小雨 🌧️", "rain"},
		{"陰天 ⛅", "overcast"},
	}
)

func (c *Client) mockReport(city string) string {
	c.mu.Lock()
	temp := mockTemps[c.rng.IntN(len(mockTemps))]
	cond := mockConditions[c.rng.IntN(len(mockConditions))]
	humidity := 45 + c.rng.IntN(41)
	c.mu.Unlock()

	return fmt.Sprintf(`🌤️ **%s 天氣資訊** (模擬資料)

🌡️ **溫度**: %d°C
☁️ **天氣**: %s
💧 **濕度**: %d%%
📅 **更新時間**: %s

⚠️ **注意**: 這是模擬資料，請配置 Weather API Key 以獲得真實天氣資訊。

💡 如何獲取免費API金鑰：
1. 訪問 https://openweathermap.org/api
2. 註冊免費帳戶
3. 獲取 API Key 並設定 AIDE_WEATHER_API_KEY

%s`,
		city, temp, cond.label, humidity, c.now().Format("2006-01-02 15:04"),
		Advice(temp, cond.code, humidity))
}
