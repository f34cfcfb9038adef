package weather

import (
	"fmt"
	"strings"
)

// descriptions translates the API's detailed description field.
var descriptions = map[string]string{
	"clear sky":        "晴朗 ☀️",
	"few clouds":       "少雲 🌤️",
	"scattered clouds": "多雲 ⛅",
	"broken clouds":    "陰天 ☁️",
	"shower rain":      "陣雨 🌦️",
	"rain":             "下雨 🌧️",
	"thunderstorm":     "雷雨 ⛈️",
	"snow":             "下雪 ❄️",
	"mist":             "薄霧 🌫️",
	"haze":             "霾 😷",
	"fog":              "霧 🌫️",
	"overcast clouds":  "陰霾 ☁️",
}

// conditions translates the coarse condition group.
var conditions = map[string]string{
	"clear":        "晴朗 ☀️",
	"clouds":       "多雲 ☁️",
	"rain":         "下雨 🌧️",
	"drizzle":      "毛毛雨 🌦️",
	"thunderstorm": "雷雨 ⛈️",
	"snow":         "下雪 ❄️",
	"mist":         "薄霧 🌫️",
	"fog":          "霧 🌫️",
	"haze":         "霾 😷",
	"dust":         "沙塵 🌪️",
	"sand":         "沙暴 🌪️",
	"ash":          "火山灰 🌋",
	"squall":       "颮風 💨",
	"tornado":      "龍捲風 🌪️",
}

func translateCondition(condition string) string {
	if s, ok := conditions[strings.ToLower(condition)]; ok {
		return s
	}
	return fmt.Sprintf("%s 🌤️", condition)
}

// Advice builds the closing tip from temperature (°C), condition group and
// relative humidity (%).
func Advice(temperature int, condition string, humidity int) string {
	var sb strings.Builder
	sb.WriteString("💡 **貼心提醒**: ")

	switch {
	case temperature < 10:
		sb.WriteString("氣溫較低，記得多穿衣保暖！")
	case temperature > 30:
		sb.WriteString("氣溫較高，注意防曬和補水！")
	case temperature >= 15 && temperature <= 25:
		sb.WriteString("氣溫舒適，是外出的好天氣！")
	}

	condition = strings.ToLower(condition)
	switch {
	case strings.Contains(condition, "rain") || strings.Contains(condition, "drizzle"):
		sb.WriteString(" 記得帶雨具！")
	case strings.Contains(condition, "thunderstorm"):
		sb.WriteString(" 有雷雨，避免戶外活動！")
	case strings.Contains(condition, "snow"):
		sb.WriteString(" 路面可能濕滑，注意安全！")
	}

	switch {
	case humidity > 80:
		sb.WriteString(" 濕度較高，可能會感覺悶熱。")
	case humidity < 30:
		sb.WriteString(" 濕度較低，記得補充水分。")
	}
	return sb.String()
}
