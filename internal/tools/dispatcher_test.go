package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalambet/aide/internal/intent"
)

type mockWeather struct {
	city string
}

func (m *mockWeather) Report(ctx context.Context, city string) string {
	m.city = city
	return "sunny in " + city
}

type mockCalendar struct {
	input    string
	entities map[string]string
}

func (m *mockCalendar) Manage(input string, entities map[string]string) string {
	m.input = input
	m.entities = entities
	return "scheduled"
}

type panickingEmail struct{}

func (panickingEmail) Process(string) string { panic("mailbox exploded") }

func TestDispatch_WeatherDefaultCity(t *testing.T) {
	w := &mockWeather{}
	d := &Dispatcher{Weather: w}

	out, ok := d.Dispatch(context.Background(), intent.Intent{Type: intent.Weather, Confidence: 0.8, Entities: map[string]string{}}, "weather?")
	assert.True(t, ok)
	assert.Equal(t, "sunny in 台北", out)
	assert.Equal(t, DefaultCity, w.city)
}

func TestDispatch_WeatherCityEntity(t *testing.T) {
	w := &mockWeather{}
	d := &Dispatcher{Weather: w}

	d.Dispatch(context.Background(), intent.Intent{Type: intent.Weather, Confidence: 0.8, Entities: map[string]string{"city": "香港"}}, "香港天氣")
	assert.Equal(t, "香港", w.city)
}

func TestDispatch_CalendarReceivesEntities(t *testing.T) {
	c := &mockCalendar{}
	d := &Dispatcher{Calendar: c}
	entities := map[string]string{"date": "tomorrow"}

	out, ok := d.Dispatch(context.Background(), intent.Intent{Type: intent.Calendar, Confidence: 0.7, Entities: entities}, "明天安排會議")
	assert.True(t, ok)
	assert.Equal(t, "scheduled", out)
	assert.Equal(t, "明天安排會議", c.input)
	assert.Equal(t, entities, c.entities)
}

func TestDispatch_Threshold(t *testing.T) {
	c := &mockCalendar{}
	d := &Dispatcher{Calendar: c}

	_, ok := d.Dispatch(context.Background(), intent.Intent{Type: intent.Calendar, Confidence: 0.5}, "x")
	assert.False(t, ok, "confidence equal to threshold must not dispatch")
	assert.Empty(t, c.input)

	_, ok = d.Dispatch(context.Background(), intent.Intent{Type: intent.General, Confidence: 1}, "x")
	assert.False(t, ok)
}

func TestDispatch_NotConfigured(t *testing.T) {
	d := &Dispatcher{}

	out, ok := d.Dispatch(context.Background(), intent.Intent{Type: intent.Weather, Confidence: 0.8}, "天氣")
	assert.True(t, ok)
	assert.Equal(t, "❌ weather 工具尚未配置", out)
}

func TestDispatch_PanicBecomesMessage(t *testing.T) {
	d := &Dispatcher{Email: panickingEmail{}}

	out, ok := d.Dispatch(context.Background(), intent.Intent{Type: intent.Email, Confidence: 0.7}, "郵件")
	assert.True(t, ok)
	assert.Equal(t, "❌ 使用 email 工具時發生錯誤: mailbox exploded", out)
}

func TestConfigured(t *testing.T) {
	d := &Dispatcher{Calendar: &mockCalendar{}}
	assert.Equal(t, map[string]bool{"weather": false, "calendar": true, "email": false}, d.Configured())
}

func TestKindString(t *testing.T) {
	for _, k := range Kinds {
		_, ok := KindOf(intent.Type(k.String()))
		assert.True(t, ok, k.String())
	}
}
