package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"diagram-tools/cmd/diagen/dsl"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

// printStats reports result sizes, elapsed time and this process's memory
// and CPU usage. Resource figures are skipped when they cannot be read.
func printStats(w io.Writer, res dsl.Result, elapsed time.Duration) {
	fmt.Fprintf(w, "templates: %d  nodes: %d  edges: %d  legends: %d  errors: %d\n",
		len(res.Fragments), len(res.Fragment.Nodes), len(res.Fragment.Edges), len(res.Legends), len(res.Errors))
	rows := 0
	for _, f := range res.Fragments {
		rows += f.Rows
	}
	fmt.Fprintf(w, "rows:      %d  elapsed: %s\n", rows, elapsed.Round(time.Microsecond))

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	if mem, err := p.MemoryInfo(); err == nil {
		fmt.Fprintf(w, "rss:       %s\n", humanize.Bytes(mem.RSS))
	}
	if cpu, err := p.CPUPercent(); err == nil {
		fmt.Fprintf(w, "cpu:       %.1f%%\n", cpu)
	}
}
