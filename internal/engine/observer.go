package engine

import (
	"time"

	"helmsman/internal/logger"
	"helmsman/internal/types"
)

// EventType 是仓位生命周期事件类别。
type EventType string

const (
	EventOpened            EventType = "open"
	EventPartialClosed     EventType = "partial_close"
	EventTrailingActivated EventType = "trailing_activate"
	EventClosed            EventType = "close"
)

// Event 携带一次生命周期转换的只读快照。
type Event struct {
	Type     EventType
	Position types.PositionSnapshot
	Reason   types.CloseReason
	PnL      float64
	At       time.Time
}

// Observer 订阅生命周期事件。回调在独立 goroutine 中执行，
// 观察者的失败或阻塞不影响状态机本身。
type Observer interface {
	OnEvent(evt Event)
}

// ObserverFunc 让函数直接充当 Observer。
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(evt Event) { f(evt) }

func (e *Engine) emit(evt Event) {
	e.obsMu.RLock()
	observers := append([]Observer(nil), e.observers...)
	e.obsMu.RUnlock()
	for _, ob := range observers {
		go func(ob Observer) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("engine observer panic: %v", r)
				}
			}()
			ob.OnEvent(evt)
		}(ob)
	}
}

// Subscribe 注册一个生命周期观察者。
func (e *Engine) Subscribe(ob Observer) {
	if ob == nil {
		return
	}
	e.obsMu.Lock()
	e.observers = append(e.observers, ob)
	e.obsMu.Unlock()
}
