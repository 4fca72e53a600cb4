package mqtt

import "strings"

// Topic namespace of the topology engine.
const (
	// TopicPrefix is the root of every topology topic.
	TopicPrefix = "graylogic/topology"
)

// Topics builds topology topic strings.
//
// Layout:
//
//	graylogic/topology/status            retained online/offline
//	graylogic/topology/event/{type}      loaded, saved, cleared, started
//	graylogic/topology/command/{name}    reload, save
//
// Usage:
//
//	topic := mqtt.Topics{}.Event("loaded")
type Topics struct{}

// Status is the retained engine status topic.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Event is the topic for one kind of topology event.
func (Topics) Event(eventType string) string {
	return TopicPrefix + "/event/" + eventType
}

// Command is the topic on which a named command is received.
func (Topics) Command(name string) string {
	return TopicPrefix + "/command/" + name
}

// AllEvents matches every topology event.
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+"
}

// AllCommands matches every topology command.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// CommandName returns the command segment of a command topic, or "" when
// topic is not a command topic.
func (Topics) CommandName(topic string) string {
	name, ok := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
