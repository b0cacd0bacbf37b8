package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dreadstar/meshrabiya-core/internal/config"
	"github.com/dreadstar/meshrabiya-core/pkg/capability"
	"github.com/dreadstar/meshrabiya-core/pkg/ifaceport"
)

// runDemo wires a line topology of N nodes over loopback interfaces,
// runs it for the given duration, and then prints each node's number of
// known routes and direct neighbors. Routing tables and role sets
// themselves are not printed.
func runDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	nodeCount := fs.Int("nodes", 4, "number of nodes in the line topology")
	duration := fs.Duration("duration", 15*time.Second, "how long to run the demo")
	fs.Parse(args)

	cfg := config.DefaultConfig()
	if *configFlag != "" {
		loaded, err := config.LoadConfig(*configFlag)
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
		cfg = loaded
	}
	resolved, err := config.ResolveRouting(cfg.Routing)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if *nodeCount < 2 {
		log.Fatal("--nodes must be at least 2")
	}

	logger := newLogger()
	ifacesByNode := make([][]ifaceport.Port, *nodeCount)
	for i := 0; i < *nodeCount-1; i++ {
		a := ifaceport.NewLoopbackPort(uint32(i), 32)
		b := ifaceport.NewLoopbackPort(uint32(i+1), 32)
		ifaceport.Link(a, b)
		ifacesByNode[i] = append(ifacesByNode[i], a)
		ifacesByNode[i+1] = append(ifacesByNode[i+1], b)
	}

	nodes := make([]*node, *nodeCount)
	for i := range nodes {
		nodes[i] = newNode(uint32(i), ifacesByNode[i], resolved, logger, nil)
	}
	defer func() {
		for _, n := range nodes {
			n.close()
		}
	}()

	builder := capability.NewBuilder(nil, nodes[0].clock)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	deadline := time.Now().Add(*duration)

	for time.Now().Before(deadline) {
		<-ticker.C
		for _, n := range nodes {
			n.planRoles(builder)
		}
	}

	for i, n := range nodes {
		fmt.Printf("node %d: %d known routes, %d neighbors\n", i, len(n.table.Snapshot()), len(n.table.Neighbors()))
	}
}
