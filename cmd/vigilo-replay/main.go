// vigilo-replay runs a recorded detection trace through the classifier and
// alert gate, for tuning cooldown and hourly-cap settings offline. The trace
// is JSONL, one detection per line:
//
//	{"offset_s": 0, "label": "fire"}
//	{"offset_s": 12, "label": "person", "after_hours": true}
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vigilo-ai/vigilo/internal/gate"
	"github.com/vigilo-ai/vigilo/internal/threat"
)

type traceRecord struct {
	OffsetS    int    `json:"offset_s"`
	Label      string `json:"label"`
	AfterHours bool   `json:"after_hours"`
}

func main() {
	tracePath := flag.String("trace", "", "path to detection trace JSONL (required)")
	cooldown := flag.Duration("cooldown", gate.DefaultCooldown, "cooldown between alerts")
	hourlyCap := flag.Int("cap", gate.DefaultHourlyCap, "max alerts per hour")
	flag.Parse()

	if *tracePath == "" {
		log.Fatalf("trace flag is required")
	}

	f, err := os.Open(*tracePath)
	if err != nil {
		log.Fatalf("open trace: %v", err)
	}
	defer f.Close()

	g := gate.New(*cooldown, *hourlyCap)
	base := time.Unix(0, 0).UTC()
	counts := make(map[gate.Reason]int)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec traceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Fatalf("line %d: %v", line, err)
		}

		verdict := threat.Classify(threat.ParseLabel(rec.Label), rec.AfterHours)
		decision := g.Decide(verdict, base.Add(time.Duration(rec.OffsetS)*time.Second))
		counts[decision.Reason]++

		fmt.Printf("t=%-6d label=%-10s threat=%-5v priority=%-6s -> %s\n",
			rec.OffsetS, rec.Label, verdict.IsThreat, verdict.Priority, decision.Reason)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read trace: %v", err)
	}

	fmt.Println()
	fmt.Printf("records: %d\n", line)
	for _, r := range []gate.Reason{gate.ReasonFired, gate.ReasonSuppressedNonThreat, gate.ReasonSuppressedCooldown, gate.ReasonSuppressedHourlyCap} {
		if counts[r] > 0 {
			fmt.Printf("%-25s %d\n", r, counts[r])
		}
	}
}
