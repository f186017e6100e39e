package mqttlink

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tiiuae/groundcontrol/internal/telemetry"
	"github.com/tiiuae/groundcontrol/internal/types"
)

// Publisher is the part of mqtt.Client the relay needs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// relay forwards operator-facing bus messages to the fleet broker
type relay struct {
	me     string
	client Publisher
	inbox  chan types.Message
}

func New(deviceID string, client Publisher) types.MessageHandler {
	return &relay{me: deviceID, client: client, inbox: make(chan types.Message, 100)}
}

func (r *relay) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT relay shutting down")
			return
		case msg := <-r.inbox:
			r.publish(msg)
		}
	}
}

func (r *relay) Receive(message types.Message) {
	if subtopic(message.Message) == "" {
		return
	}
	select {
	case r.inbox <- message:
	default:
		log.Printf("MQTT relay: inbox full, dropping %s", message.MessageType)
	}
}

func subtopic(payload interface{}) string {
	switch payload.(type) {
	case telemetry.Report:
		return "telemetry"
	case types.Notification:
		return "notification"
	case types.CollectionChanged:
		return "collection"
	case types.UploadFinished:
		return "upload"
	case types.DroneConnectionChanged:
		return "connection"
	}
	return ""
}

func (r *relay) publish(msg types.Message) {
	b, err := json.Marshal(msg.Message)
	if err != nil {
		log.Printf("MQTT relay: could not marshal %s: %v", msg.MessageType, err)
		return
	}
	r.client.Publish(Topic(r.me, subtopic(msg.Message)), QoS, Retain, string(b))
}
