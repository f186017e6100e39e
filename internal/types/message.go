package types

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
)

type Message struct {
	Timestamp   time.Time   `json:"timestamp"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	ID          string      `json:"id"`
	MessageType string      `json:"message_type"`
	Message     interface{} `json:"message"`
}

// Serialize message to json-message for the mqtt relay
func (message *Message) ToJsonMessage() (Message, error) {
	b, err := json.Marshal(message.Message)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Timestamp:   message.Timestamp,
		From:        message.From,
		To:          message.To,
		ID:          message.ID,
		MessageType: message.MessageType,
		Message:     json.RawMessage(b),
	}, nil
}

func CreateMessage(messageType, from, to string, message interface{}) Message {
	return Message{
		time.Now(),
		from,
		to,
		uuid.NewString(),
		messageType,
		message,
	}
}

// Wrap creates a broadcast message whose type is derived from the payload type name,
// e.g. CollectionChanged becomes "collection-changed"
func Wrap(from string, payload interface{}) Message {
	return CreateMessage(TypeName(payload), from, "*", payload)
}

var typeNames sync.Map

func TypeName(payload interface{}) string {
	t := reflect.TypeOf(payload)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name, ok := typeNames.Load(t); ok {
		return name.(string)
	}
	name := kebab(t.Name())
	typeNames.Store(t, name)
	return name
}

func kebab(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])
			if prevLower || nextLower {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func Notify(from string, level NotificationLevel, text string) Message {
	return Wrap(from, Notification{Level: level, Text: text})
}
