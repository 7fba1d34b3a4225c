// Command busctl is a self-contained demonstration of the capability bus:
// it builds a small set of named, in-process peers and runs one of a
// handful of scripted scenarios against them, printing every delivered
// message in the order its destination actually observed it.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/jabolina/go-distq/capability"
	"github.com/jabolina/go-distq/logging"
	"github.com/jabolina/go-distq/metrics"
)

func main() {
	app := &cli.App{
		Name:  "busctl",
		Usage: "drive scripted scenarios against an in-process capability bus",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"},
		},
		Commands: []*cli.Command{
			runCommand,
		},
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "busctl:", err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run one of the built-in scenarios",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "scenario",
			Value: "all",
			Usage: "handle-release, object-destruction, payload, or all",
		},
	},
	Action: func(c *cli.Context) error {
		log := logging.New(c.Bool("debug"))
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Warnf("metrics already registered: %v", err)
		}

		scenarios := map[string]func(log logging.Logger){
			"handle-release":    scenarioHandleRelease,
			"object-destruction": scenarioObjectDestruction,
			"payload":            scenarioPayload,
		}

		which := c.String("scenario")
		if which == "all" {
			names := make([]string, 0, len(scenarios))
			for name := range scenarios {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				log.Infof("=== %s ===", name)
				scenarios[name](log)
			}
			return nil
		}

		run, ok := scenarios[which]
		if !ok {
			return cli.Exit(fmt.Sprintf("unknown scenario %q", which), 1)
		}
		run(log)
		return nil
	},
}

func newBus(log logging.Logger, names ...string) map[string]*capability.Peer {
	bus := make(map[string]*capability.Peer, len(names))
	for _, name := range names {
		bus[name] = capability.NewPeer(name, metrics.New(name))
	}
	return bus
}

func drain(log logging.Logger, p *capability.Peer) {
	for p.Queue.Poll() {
		n := p.Queue.Peek()
		if n == nil {
			return
		}
		log.Infof("%s observes %s at timestamp %d", p.Name, capability.KindOf(n), n.Timestamp())
		p.Queue.Pop(n)
		capability.Release(n)
	}
}

func scenarioHandleRelease(log logging.Logger) {
	bus := newBus(log, "owner", "holder")
	owner, holder := bus["owner"], bus["holder"]

	object := owner.NewObject()
	handle := holder.Grant(object)

	var stage capability.Stage
	owner.Lock.Lock()
	stage.AddReleaseLocked(handle)
	owner.Lock.Unlock()
	stage.Commit(holder.Queue)

	drain(log, owner)
}

func scenarioObjectDestruction(log logging.Logger) {
	bus := newBus(log, "owner", "reader", "writer")
	owner, reader, writer := bus["owner"], bus["reader"], bus["writer"]

	object := owner.NewObject()
	reader.Grant(object)
	writer.Grant(object)

	var stage capability.Stage
	owner.Lock.Lock()
	stage.AddDestructionLocked(object)
	owner.Lock.Unlock()
	stage.Commit(owner.Queue)

	drain(log, reader)
	drain(log, writer)
	drain(log, owner)
}

func scenarioPayload(log logging.Logger) {
	bus := newBus(log, "sender", "receiver")
	sender, receiver := bus["sender"], bus["receiver"]

	object := sender.NewObject()
	transferred := sender.Grant(object)
	up := capability.NewUserPayload([]byte("hello, receiver"), []*capability.Handle{transferred})

	var stage capability.Stage
	stage.AddPayload(up, receiver)
	stage.Commit(sender.Queue)

	drain(log, receiver)
}
