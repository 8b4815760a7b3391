// Command demo-shutdown starts a two-axis bus, issues a move, then
// requests an ordered shutdown partway through to show the
// hold-position-then-power-down sequence the Lifecycle Manager runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"ethercat-csp-core/core"
	"ethercat-csp-core/internal/simmaster"
)

func main() {
	holdFor := flag.Duration("hold-for", 500*time.Millisecond, "time to let the move run before requesting shutdown")
	flag.Parse()

	master := simmaster.New(2, 200_000)
	h := core.NewHandle(master, "sim0", 2, core.DefaultLoopConfig(2))

	ctx := context.Background()
	if err := h.Start(ctx); err != nil {
		fmt.Printf("failed to start control loop: %v\n", err)
		return
	}

	if err := h.Enqueue(core.MoveToMm(0, 200)); err != nil {
		fmt.Printf("failed to enqueue move: %v\n", err)
		return
	}
	if err := h.Enqueue(core.MoveToMm(1, 200)); err != nil {
		fmt.Printf("failed to enqueue move: %v\n", err)
		return
	}

	fmt.Printf("move issued, letting it run for %v before shutdown...\n", *holdFor)
	time.Sleep(*holdFor)

	before0, _ := h.Snapshot(0)
	before1, _ := h.Snapshot(1)
	fmt.Printf("pre-shutdown: axis0=%.3fmm axis1=%.3fmm\n",
		before0.PositionMM(core.AxisZ), before1.PositionMM(core.AxisZ))

	fmt.Println("requesting shutdown...")
	if err := h.Stop(); err != nil {
		fmt.Printf("shutdown returned error: %v\n", err)
		return
	}
	fmt.Println("shutdown complete")
}
