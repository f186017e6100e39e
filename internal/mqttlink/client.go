package mqttlink

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// MQTT parameters
const (
	TopicType = "events"
	QoS       = 1
	Retain    = false
	Username  = "unused"
)

type Options struct {
	Broker         string
	ClientID       string
	PrivateKeyPath string
	Algorithm      string // RS256 or ES256
	Audience       string
	TokenLifetime  time.Duration
}

// Connect creates a client for the broker and starts connecting in the background.
// Publishes made before the connection is up are queued by the client.
func Connect(deviceID string, opts Options) (mqtt.Client, error) {
	if opts.Broker == "" {
		return nil, errors.New("no mqtt broker configured")
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = deviceID
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetProtocolVersion(4) // MQTT 3.1.1

	if opts.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(opts.PrivateKeyPath)
		if err != nil {
			return nil, errors.WithMessage(err, "read mqtt private key")
		}
		pass, err := Password(keyData, opts.Algorithm, opts.Audience, time.Now(), opts.TokenLifetime)
		if err != nil {
			return nil, err
		}
		clientOpts.
			SetUsername(Username).
			SetPassword(pass).
			SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	clientOpts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("MQTT: connected to %s", opts.Broker)
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT: connection lost: %v", err)
	})

	log.Printf("MQTT: connecting to %s as %s", opts.Broker, clientID)
	client := mqtt.NewClient(clientOpts)
	client.Connect()
	return client, nil
}

// Password signs the JWT used as the broker password
func Password(keyData []byte, algorithm string, audience string, now time.Time, lifetime time.Duration) (string, error) {
	if algorithm == "" {
		algorithm = "RS256"
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	var key interface{}
	var err error
	switch algorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Errorf("unknown signing algorithm %s", algorithm)
	}
	if err != nil {
		return "", errors.WithMessage(err, "parse mqtt private key")
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(algorithm), &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
		Audience:  audience,
	})
	pass, err := token.SignedString(key)
	if err != nil {
		return "", errors.WithMessage(err, "sign mqtt password")
	}
	return pass, nil
}

func Topic(deviceID string, subtopic string) string {
	return fmt.Sprintf("/devices/%s/%s/%s", deviceID, TopicType, subtopic)
}
