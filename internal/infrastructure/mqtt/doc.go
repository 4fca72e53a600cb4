// Package mqtt connects the topology engine to the site MQTT broker.
//
// The engine publishes an event after each load, save, start or clear and
// accepts commands (reload, save) on its command topics:
//
//	┌──────────────┐  event/loaded   ┌────────┐
//	│   topology   │ ──────────────▶ │ broker │
//	│    engine    │ ◀────────────── │        │
//	└──────────────┘  command/reload └────────┘
//
// Reconnection is handled by paho with exponential backoff; subscriptions
// are replayed on every reconnect. The status topic is retained and backed
// by a Last Will, so subscribers see "offline" after a crash.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.PublishJSON(mqtt.Topics{}.Event("loaded"), report, false)
package mqtt
