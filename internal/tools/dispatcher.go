// Package tools routes a classified intent to the matching domain tool.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/aide/internal/intent"
)

// DefaultCity is used for weather lookups when the input names no city.
const DefaultCity = "台北"

// Kind identifies a domain tool.
type Kind int

const (
	Weather Kind = iota
	Calendar
	Email
)

// Kinds lists every tool kind in dispatch order.
var Kinds = []Kind{Weather, Calendar, Email}

func (k Kind) String() string {
	switch k {
	case Weather:
		return "weather"
	case Calendar:
		return "calendar"
	case Email:
		return "email"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf maps an intent type to a tool kind. General has no tool.
func KindOf(t intent.Type) (Kind, bool) {
	switch t {
	case intent.Weather:
		return Weather, true
	case intent.Calendar:
		return Calendar, true
	case intent.Email:
		return Email, true
	}
	return 0, false
}

// WeatherTool reports current weather for a city.
type WeatherTool interface {
	Report(ctx context.Context, city string) string
}

// CalendarTool executes a schedule command.
type CalendarTool interface {
	Manage(input string, entities map[string]string) string
}

// EmailTool executes a mail command.
type EmailTool interface {
	Process(input string) string
}

// Dispatcher holds the configured tools. A nil field means that tool is not
// available and dispatching to it yields an inline notice.
type Dispatcher struct {
	Weather  WeatherTool
	Calendar CalendarTool
	Email    EmailTool
}

// Configured reports which tools are available.
func (d *Dispatcher) Configured() map[string]bool {
	return map[string]bool{
		Weather.String():  d.Weather != nil,
		Calendar.String(): d.Calendar != nil,
		Email.String():    d.Email != nil,
	}
}

// Dispatch runs the tool for in when it is dispatchable. The second return
// value reports whether a tool was invoked. Tool failures, including panics,
// come back as display strings.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, input string) (string, bool) {
	if !in.Dispatchable() {
		return "", false
	}
	kind, ok := KindOf(in.Type)
	if !ok {
		return "", false
	}
	slog.Debug("dispatching tool", "tool", kind, "confidence", in.Confidence)
	return d.run(ctx, kind, in, input), true
}

func (d *Dispatcher) run(ctx context.Context, kind Kind, in intent.Intent, input string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("tool failed", "tool", kind, "panic", r)
			out = fmt.Sprintf("❌ 使用 %s 工具時發生錯誤: %v", kind, r)
		}
	}()

	switch kind {
	case Weather:
		if d.Weather == nil {
			return notConfigured(kind)
		}
		city := in.Entities[intent.EntityCity]
		if city == "" {
			city = DefaultCity
		}
		return d.Weather.Report(ctx, city)
	case Calendar:
		if d.Calendar == nil {
			return notConfigured(kind)
		}
		return d.Calendar.Manage(input, in.Entities)
	case Email:
		if d.Email == nil {
			return notConfigured(kind)
		}
		return d.Email.Process(input)
	}
	return "❌ 工具執行失敗"
}

func notConfigured(k Kind) string {
	return fmt.Sprintf("❌ %s 工具尚未配置", k)
}
