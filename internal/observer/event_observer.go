package observer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GenerationEvent represents one lifecycle event of a marker generation.
type GenerationEvent struct {
	EventID        string                 `json:"event_id"`
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	MarkerName     string                 `json:"marker_name"`
	ImagePath      string                 `json:"image_path"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of generation event
type EventType string

const (
	// GenerationStarted when a marker generation begins
	GenerationStarted EventType = "generation_started"
	// GenerationCompleted when all three artifact files are in place
	GenerationCompleted EventType = "generation_completed"
	// GenerationFailed when any generation stage fails
	GenerationFailed EventType = "generation_failed"
)

// NewEvent builds a generation event with a fresh ID and timestamp.
func NewEvent(eventType EventType, markerName, imagePath string) GenerationEvent {
	return GenerationEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
		MarkerName: markerName,
		ImagePath:  imagePath,
	}
}

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event GenerationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event GenerationEvent)
}

// LoggingObserver logs generation events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles generation events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event GenerationEvent) {
	fields := logrus.Fields{
		"event_id":        event.EventID,
		"event_type":      event.EventType,
		"marker":          event.MarkerName,
		"image_path":      event.ImagePath,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case GenerationStarted:
		o.logger.WithFields(fields).Info("Marker generation started")
	case GenerationCompleted:
		o.logger.WithFields(fields).Info("Marker generation completed")
	case GenerationFailed:
		o.logger.WithFields(fields).Error("Marker generation failed")
	default:
		o.logger.WithFields(fields).Info("Generation event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event GenerationEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
