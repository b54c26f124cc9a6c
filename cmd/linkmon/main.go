package main

import (
	"flag"
	"log"
	"strings"

	"github.com/robotalks/mowlink/pkg/config"
	"github.com/robotalks/mowlink/pkg/telemetry"
)

var (
	all bool
)

func init() {
	config.SetupFlags()
	flag.BoolVar(&all, "all", all, "Monitor every mower on the broker.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := config.Default()
	if conf.MQTTBrokerURL == "" {
		log.Fatalln("MQTT broker URL required")
	}
	q, err := telemetry.NewQueueFromURL(conf.MQTTBrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	pattern := conf.ID + "/state/#"
	if all {
		pattern = "+/state/#"
	}
	q.Subscribe(pattern, func(topic string, payload []byte) {
		id := topic
		if pos := strings.Index(topic, "/"); pos > 0 {
			id = topic[:pos]
		}
		r, err := telemetry.DecodeRecord(payload)
		if err != nil {
			log.Printf("%s: bad record: %v", topic, err)
			return
		}
		log.Printf("%s %s", id, r.String())
	})
	<-(chan struct{})(nil)
}
