package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

/*
Telemetry generator.

Publishes one telemetry message, in the format the bridge consumes, to a broker.

Usage:
  -rtu string
    	Tracker identifier (required)
  -lat float
    	Latitude
  -lon float
    	Longitude
  -dir int
    	Direction in degrees, North=0
  -speed float
    	Speed
  -board string
    	Board number
  -route string
    	Route name
  -time string
    	Timestamp in RFC 3339 format, default: now
  -kind string
    	Broker kind: mqtt or nats (default "mqtt")
  -broker string
    	Broker URL (default "tcp://localhost:1883")
  -topic string
    	Topic to publish to, default: telemetry/transport/<rtu>

Example

```
./telemetry-gen -rtu 2 -lat 47.0105 -lon 28.8638 -dir 90 -speed 12 -board 3913 -route 30
```
*/

func main() {
	msg := Message{}
	ts := ""
	kind := ""
	broker := ""
	topic := ""

	flag.StringVar(&msg.RtuID, "rtu", "", "Tracker identifier (required)")
	flag.Float64Var(&msg.Latitude, "lat", 0, "Latitude")
	flag.Float64Var(&msg.Longitude, "lon", 0, "Longitude")
	flag.IntVar(&msg.Direction, "dir", 0, "Direction in degrees, North=0")
	flag.Float64Var(&msg.Speed, "speed", 0, "Speed")
	flag.StringVar(&msg.Board, "board", "", "Board number")
	flag.StringVar(&msg.Route, "route", "", "Route name")
	flag.StringVar(&ts, "time", "", "Timestamp in RFC 3339 format, default: now")
	flag.StringVar(&kind, "kind", "mqtt", "Broker kind: mqtt or nats")
	flag.StringVar(&broker, "broker", "tcp://localhost:1883", "Broker URL")
	flag.StringVar(&topic, "topic", "", "Topic, default: telemetry/transport/<rtu>")

	flag.Parse()

	if msg.RtuID == "" {
		fmt.Println("Tracker identifier is required, see help (-h)")
		os.Exit(1)
	}

	timestamp := time.Now()
	if ts != "" {
		var err error
		if timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			fmt.Println("Could not parse timestamp: ", ts)
			os.Exit(1)
		}
	}
	msg.SetTimestamp(timestamp)

	if topic == "" {
		topic = DefaultTopic(kind, msg.RtuID)
	}

	payload, err := msg.Encode()
	if err != nil {
		fmt.Println("Could not encode message: ", err)
		os.Exit(1)
	}

	if err = Publish(kind, broker, topic, payload); err != nil {
		fmt.Println("Publish failed: ", err)
		os.Exit(1)
	}

	fmt.Printf("Published %d bytes to %s\n", len(payload), topic)
}
