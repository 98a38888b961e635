package events

import (
	"sync"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CallFinalized 通话进入 COMPLETED/FAILED 时发布
	CallFinalized = "call.finalized"
	// WildcardType 订阅所有事件
	WildcardType = "*"
)

// Event 系统事件
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Source    string                 `json:"source"`
}

// EventHandler 事件处理器
type EventHandler func(event Event) error

// EventBus 事件总线，处理器异步执行
type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

var globalEventBus *EventBus
var once sync.Once

// NewEventBus 创建独立的事件总线（测试用）
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]EventHandler)}
}

// GetEventBus 获取全局事件总线实例
func GetEventBus() *EventBus {
	once.Do(func() {
		globalEventBus = NewEventBus()
	})
	return globalEventBus
}

// Subscribe 订阅事件
func (bus *EventBus) Subscribe(eventType string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers[eventType] = append(bus.handlers[eventType], handler)
	logger.Info("Event handler subscribed", zap.String("eventType", eventType))
}

// Unsubscribe 移除该类型的所有处理器
func (bus *EventBus) Unsubscribe(eventType string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, eventType)
}

// Publish 发布事件
func (bus *EventBus) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.RLock()
	all := make([]EventHandler, 0, len(bus.handlers[event.Type])+len(bus.handlers[WildcardType]))
	all = append(all, bus.handlers[event.Type]...)
	all = append(all, bus.handlers[WildcardType]...)
	bus.mu.RUnlock()

	if len(all) == 0 {
		logger.Debug("No handlers for event", zap.String("eventType", event.Type))
		return
	}

	for _, handler := range all {
		bus.wg.Add(1)
		go func(h EventHandler) {
			defer bus.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panic",
						zap.String("eventType", event.Type),
						zap.Any("panic", r))
				}
			}()
			if err := h(event); err != nil {
				logger.Error("Event handler failed",
					zap.String("eventType", event.Type),
					zap.String("eventId", event.ID),
					zap.Error(err))
			}
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned.
func (bus *EventBus) Wait() {
	bus.wg.Wait()
}

// PublishEvent 便捷方法：发布到全局总线
func PublishEvent(eventType string, data map[string]interface{}, source string) {
	GetEventBus().Publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Source:    source,
	})
}
