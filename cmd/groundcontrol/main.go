package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tiiuae/groundcontrol/internal/commands"
	"github.com/tiiuae/groundcontrol/internal/config"
	"github.com/tiiuae/groundcontrol/internal/connection"
	"github.com/tiiuae/groundcontrol/internal/contextmenu"
	"github.com/tiiuae/groundcontrol/internal/export"
	"github.com/tiiuae/groundcontrol/internal/logging"
	"github.com/tiiuae/groundcontrol/internal/mapview"
	"github.com/tiiuae/groundcontrol/internal/metrics"
	"github.com/tiiuae/groundcontrol/internal/missionscreen"
	"github.com/tiiuae/groundcontrol/internal/mqttlink"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/socket"
	"github.com/tiiuae/groundcontrol/internal/store"
	"github.com/tiiuae/groundcontrol/internal/telemetry"
	"github.com/tiiuae/groundcontrol/internal/types"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("Configuration: %v", err)
	}
	logFile := logging.Setup(cfg.Logging)
	defer logFile.Close()

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup

	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		log.Fatalf("Store: %v", err)
	}
	defer db.Close()

	prefs := session.DefaultPreferences()
	if saved, err := db.Preferences(ctx); err != nil {
		log.Printf("Store: could not load preferences: %v", err)
	} else {
		prefs = prefs.Merge(saved)
	}
	sess := session.New(prefs)

	stats := metrics.New(cfg.Metrics.Listen)
	handlers := []types.MessageHandler{
		types.NewLogger(cfg.Logging.Verbose),
		stats,
		socket.New(cfg.Device, socket.Options{
			URL:               cfg.Backend.URL,
			ReconnectInterval: cfg.Backend.ReconnectInterval,
		}),
		connection.New(cfg.Device, sess, db),
		telemetry.New(cfg.Device, sess, cfg.Telemetry.Interval),
		mapview.New(cfg.Device, sess, &mapview.MemoryClipboard{}, cfg.Map.HistoryLimit),
		commands.New(cfg.Device, sess, os.Stdin, os.Stdout),
	}

	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqttlink.Connect(cfg.Device, mqttlink.Options{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			PrivateKeyPath: cfg.MQTT.PrivateKeyPath,
			Algorithm:      cfg.MQTT.Algorithm,
			Audience:       cfg.MQTT.Audience,
		})
		if err != nil {
			log.Fatalf("MQTT: %v", err)
		}
		defer mqttClient.Disconnect(1000)
		handlers = append(handlers, mqttlink.New(cfg.Device, mqttClient))
	}

	messagebus := make(chan types.Message, 100)
	bus := types.NewMessageBus(messagebus, handlers...)

	// the mission screen lives for the whole run; release detaches it before shutdown
	release := bus.Subscribe(missionscreen.New(cfg.Device, sess, missionscreen.Options{
		UploadTimeout: cfg.Upload.Timeout,
		Store:         db,
		Export:        export.ExportCollections,
	}))

	go bus.Run(ctx, &wg)

	bus.Post(types.Wrap(cfg.Device, types.ViewportResized{
		Size: contextmenu.Size{Width: cfg.Map.ViewportWidth, Height: cfg.Map.ViewportHeight},
	}))

	// wait for termination and close quit to signal all
	<-terminationSignals
	log.Printf("Shutting down..")
	release()
	// cancel the main context
	quitFunc()
	// wait until goroutines have done their cleanup
	log.Printf("Waiting for routines to finish..")
	waitTimeout(&wg, 5*time.Second)
	log.Printf("Signing off - BYE")
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		log.Printf("Some routines did not finish within %v", d)
	}
}
