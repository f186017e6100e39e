package types

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// High-rate telemetry is kept out of the log
var quietMessages = map[string]bool{
	"incoming-msg":          true,
	"global-position-int":   true,
	"nav-controller-output": true,
	"heartbeat":             true,
	"vfr-hud":               true,
	"attitude":              true,
	"sys-status":            true,
	"telemetry-report":      true,
}

type logger struct {
	verbose bool
}

// NewLogger logs every bus message. With verbose set telemetry is logged too.
func NewLogger(verbose bool) MessageHandler {
	return &logger{verbose}
}

func (l *logger) Receive(message Message) {
	if !l.verbose && quietMessages[message.MessageType] {
		return
	}

	b, _ := json.Marshal(message.Message)
	log.Printf("Message: %s (%s -> %s): %s", message.MessageType, message.From, message.To, string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
