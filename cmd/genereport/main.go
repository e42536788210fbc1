// Command genereport prints per-cycle population counts and per-trait
// frequency trends from a result database written by genesim.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gene-sim/internal/persistence"
)

func main() {
	dbPath := flag.String("db", "genesim.db", "path to the SQLite result database")
	runID := flag.String("run", "", "run to report on; defaults to the most recent")
	every := flag.Int("every", 1, "print every Nth cycle")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	store, err := persistence.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no runs in database")
		return
	}

	run := runs[0]
	if *runID != "" {
		found := false
		for _, r := range runs {
			if r.RunID == *runID {
				run = r
				found = true
				break
			}
		}
		if !found {
			slog.Error("run not found", "run_id", *runID)
			os.Exit(1)
		}
	}

	fmt.Printf("run %s  seed=%d  status=%s  cycles=%d/%d\n",
		run.RunID, run.Seed, run.Status, run.CyclesCompleted, run.Cycles)
	if run.FinalPopulation.Valid {
		fmt.Printf("final population: %s\n", humanize.Comma(run.FinalPopulation.Int64))
	}
	fmt.Println()

	if err := printCycleTable(store, run.RunID, *every); err != nil {
		slog.Error("failed to print cycle table", "error", err)
		os.Exit(1)
	}
	if err := printTraitTrends(store, run.RunID, *every); err != nil {
		slog.Error("failed to print trait trends", "error", err)
		os.Exit(1)
	}
}

func printCycleTable(store *persistence.SQLiteStore, runID string, every int) error {
	cycles, err := store.CycleSeries(runID)
	if err != nil {
		return fmt.Errorf("cycle series: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "cycle\tpopulation\telig ♂\telig ♀\tbirths\tdeaths")
	for i, c := range cycles {
		if i%every != 0 && i != len(cycles)-1 {
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\n",
			c.Cycle, c.PopulationSize, c.EligibleMales, c.EligibleFemales, c.Births, c.Deaths)
	}
	fmt.Fprintln(w)
	return w.Flush()
}

func printTraitTrends(store *persistence.SQLiteStore, runID string, every int) error {
	traits, err := store.RunTraits(runID)
	if err != nil {
		return fmt.Errorf("traits: %w", err)
	}

	for _, tr := range traits {
		series, err := store.TraitSeries(runID, tr.TraitID)
		if err != nil {
			return fmt.Errorf("trait %d series: %w", tr.TraitID, err)
		}
		if len(series) == 0 {
			continue
		}

		fmt.Printf("trait %d %q (%s)\n", tr.TraitID, tr.Name, tr.TraitType)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "cycle\tgenotypes\talleles\thet\tdiversity")
		for i, row := range series {
			if i%every != 0 && i != len(series)-1 {
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%d\n",
				row.Cycle,
				formatFreqs(row.GenotypeFrequencies),
				formatFreqs(row.AlleleFrequencies),
				row.Heterozygosity,
				row.GenotypeDiversity)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

// formatFreqs renders a JSON frequency map as "a=0.50 b=0.50" with keys
// sorted for stable output.
func formatFreqs(raw string) string {
	var freqs map[string]float64
	if err := json.Unmarshal([]byte(raw), &freqs); err != nil {
		return raw
	}
	keys := make([]string, 0, len(freqs))
	for k := range freqs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.2f", k, freqs[k])
	}
	return out
}
