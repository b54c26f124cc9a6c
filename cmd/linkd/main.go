package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/cli/sh"
	"github.com/robotalks/mowlink/pkg/config"
	fx "github.com/robotalks/mowlink/pkg/framework"
	"github.com/robotalks/mowlink/pkg/station"
	"github.com/robotalks/mowlink/pkg/telemetry"
)

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := config.Default()
	file := conf.MustLoad()
	st, err := station.New(file, station.Options{})
	if err != nil {
		log.Fatalln(err)
	}
	defer st.Close()

	runner := fx.NewRunner().HandleSignals()
	runner.Go(st.Runnables()...)

	if conf.MQTTBrokerURL != "" {
		q, err := telemetry.NewQueueFromURL(conf.MQTTBrokerURL)
		if err != nil {
			log.Fatalln(err)
		}
		if err := q.Connect(); err != nil {
			log.Fatalln(err)
		}
		defer q.Close()
		runner.Go(fx.NamedRun("telemetry", &telemetry.Publisher{
			Broker:   q,
			ID:       conf.ID,
			Sink:     st.Sink,
			Interval: file.Telemetry.Interval.Duration,
		}))
		if gps := st.GPSLink(); gps != nil {
			runner.Go(fx.NamedRun("corrections", &telemetry.Corrections{
				Broker: q,
				ID:     conf.ID,
				Target: gps,
			}))
		}
	}

	if conf.Shell {
		shell := sh.New(st)
		runner.Go(fx.NamedRun(shell.Name(), fx.RunFunc(func(ctx context.Context) error {
			defer runner.Stop()
			return shell.Run(ctx)
		})))
	}

	glog.Infof("mower %s: %d links running", conf.ID, len(st.Links()))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
