// mkfixture creates a small representative Parquet fixture from a large
// quarterly dispute file. Two passes: the first buckets rows by traits worth
// covering, the second merges the buckets up to the row budget.
// Usage: go run ./cmd/mkfixture --in testdata/idr_2023_Q4.parquet --out testdata/idr-small.parquet --rows 200
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

func main() {
	in := flag.String("in", "testdata/idr_2023_Q4.parquet", "input parquet")
	out := flag.String("out", "testdata/idr-small.parquet", "output parquet")
	maxRows := flag.Int("rows", 200, "max rows to output")
	checkOnly := flag.Bool("check", false, "only print stats, don't write")
	flag.Parse()

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	stat, _ := f.Stat()
	pf, err := goparquet.OpenFile(f, stat.Size())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open parquet: %v\n", err)
		os.Exit(1)
	}

	reader := goparquet.NewGenericReader[model.Dispute](pf)
	defer reader.Close()

	// Pass 1: read all rows, bucket by interesting traits.
	type bucket struct {
		name string
		rows []model.Dispute
		want int
		take func(*model.Dispute) bool
	}
	buckets := []*bucket{
		{name: "batched", want: 30, take: (*model.Dispute).Batched},
		{name: "provider_win", want: 30, take: (*model.Dispute).ProviderWon},
		{name: "payer_win", want: 30, take: func(d *model.Dispute) bool { return d.Outcome == model.OutcomePayerWin }},
		{name: "fee", want: 20, take: func(d *model.Dispute) bool { return d.IDRECompensation != nil }},
		{name: "extreme_offer", want: 20, take: func(d *model.Dispute) bool { return d.ProviderOfferPct != nil && *d.ProviderOfferPct > 500 }},
		{name: "general", want: *maxRows},
	}
	states := make(map[string]int)
	providers := make(map[string]int)

	buf := make([]model.Dispute, 1024)
	var totalRead int
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			totalRead++
			row := buf[i]
			states[row.State]++
			providers[row.ProviderName]++
			if *checkOnly {
				continue
			}

			placed := false
			for _, b := range buckets[:len(buckets)-1] {
				if len(b.rows) < b.want && b.take(&row) {
					b.rows = append(b.rows, row)
					placed = true
					break
				}
			}
			general := buckets[len(buckets)-1]
			if !placed && len(general.rows) < general.want {
				general.rows = append(general.rows, row)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "read: %v\n", readErr)
			os.Exit(1)
		}
	}
	fmt.Printf("Scanned %d rows: %d providers, %d states\n", totalRead, len(providers), len(states))

	if *checkOnly {
		printTop("providers", providers, 10)
		printTop("states", states, 10)
		return
	}

	// Pass 2: merge buckets in priority order.
	var selected []model.Dispute
	for _, b := range buckets {
		for _, row := range b.rows {
			if len(selected) >= *maxRows {
				break
			}
			selected = append(selected, row)
		}
	}

	outFile, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	writer := goparquet.NewGenericWriter[model.Dispute](outFile)
	if _, err := writer.Write(selected); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close writer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s\n", len(selected), *out)
	for _, b := range buckets {
		fmt.Printf("  %-14s %d\n", b.name, len(b.rows))
	}
}

func printTop(label string, counts map[string]int, n int) {
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	fmt.Printf("Top %s:\n", label)
	for _, name := range names {
		fmt.Printf("  %-50s %d\n", name, counts[name])
	}
}
