package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"conference/config"
	"conference/mip"
	"conference/model"
	"conference/objective"
	"conference/partition"
	"conference/roster"
	"conference/solver"
)

type runResult struct {
	score    float64
	initial  float64
	accepted int
	key      string
	elapsed  time.Duration
}

func printStats(label string, results []runResult, runs int) {
	scores := map[string]int{}
	solutionSets := map[string]int{}
	var totalTime time.Duration
	var totalGain float64
	var totalAccepted int

	for _, r := range results {
		totalTime += r.elapsed
		scores[fmt.Sprintf("%.2f", r.score)]++
		solutionSets[r.key]++
		totalGain += r.score - r.initial
		totalAccepted += r.accepted
	}

	fmt.Printf("--- %s ---\n", label)
	if len(results) == 0 {
		fmt.Printf("  no successful runs\n\n")
		return
	}
	fmt.Printf("  avg time: %v\n", totalTime/time.Duration(len(results)))
	fmt.Printf("  avg gain: %.2f over %.1f accepted steps\n",
		totalGain/float64(len(results)), float64(totalAccepted)/float64(len(results)))

	var scoreList []struct {
		score string
		count int
	}
	for s, c := range scores {
		scoreList = append(scoreList, struct {
			score string
			count int
		}{s, c})
	}
	sort.Slice(scoreList, func(i, j int) bool {
		a, _ := strconv.ParseFloat(scoreList[i].score, 64)
		b, _ := strconv.ParseFloat(scoreList[j].score, 64)
		return a > b
	})

	fmt.Printf("  score distribution:\n")
	for _, sc := range scoreList {
		fmt.Printf("    score %s: %d/%d runs (%.0f%%)\n", sc.score, sc.count, runs, float64(sc.count)/float64(runs)*100)
	}

	fmt.Printf("  unique solutions seen: %d\n", len(solutionSets))
	var freqs []int
	for _, c := range solutionSets {
		freqs = append(freqs, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(freqs)))
	topN := min(5, len(freqs))
	fmt.Printf("  top %d solution frequencies: ", topN)
	for i := range topN {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Printf("%d/%d", freqs[i], runs)
	}
	fmt.Println()
	fmt.Println()
}

func main() {
	cfgPath := flag.String("config", "", "YAML config file (defaults when empty)")
	rosterPath := flag.String("roster", "", "attendee roster, overrides the config")
	numGroups := flag.Int("groups", 0, "number of groups, overrides the config")
	runs := flag.Int("runs", 20, "number of optimizer runs per parameter set")
	strategies := flag.String("strategy", "partition,swap,mixed", "comma-separated strategies")
	windows := flag.String("window", "3", "comma-separated partition window sizes")
	fails := flag.String("fails", "10", "comma-separated consecutive failure limits")
	goodEnough := flag.Float64("good", 2000, "swap delta accepted without a full scan")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *rosterPath != "" {
		cfg.Roster = *rosterPath
	}
	if *numGroups > 0 {
		cfg.NumGroups = *numGroups
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log := zap.NewNop()
	attendees, err := roster.NewReader(cfg.Format, log).ReadFile(cfg.Roster)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading roster: %v\n", err)
		os.Exit(1)
	}
	scorer := objective.New(cfg.Objective).Restrict(model.NewRegistry(attendees))
	parts := partition.New(scorer, mip.NewBranchAndBound(cfg.MIP), cfg.Partition, log)

	fmt.Printf("Attendees: %d, Groups: %d\n", len(attendees), cfg.NumGroups)
	fmt.Printf("Runs per config: %d\n\n", *runs)

	for _, strategy := range strings.Split(*strategies, ",") {
		for _, window := range parseIntList(*windows) {
			for _, maxFails := range parseIntList(*fails) {
				params := cfg.Optimizer
				params.Strategy = solver.Strategy(strings.TrimSpace(strategy))
				params.Window = window
				params.MaxFailedTries = maxFails
				params.GoodEnough = *goodEnough

				var results []runResult
				for run := range *runs {
					rng := rand.New(rand.NewSource(int64(run * 31337)))
					conf := model.New(model.Split(attendees, cfg.NumGroups, rng))
					opt := solver.NewOptimizer(conf, scorer, parts, params, log)
					start := time.Now()
					report, err := opt.Optimize(context.Background())
					elapsed := time.Since(start)
					if err != nil {
						fmt.Fprintf(os.Stderr, "run %d: %v\n", run, err)
						continue
					}
					results = append(results, runResult{
						score:    report.Score,
						initial:  report.InitialScore,
						accepted: report.Accepted,
						key:      opt.Conference().Key(),
						elapsed:  elapsed,
					})
				}
				label := fmt.Sprintf("%s window=%d fails=%d good=%.0f", params.Strategy, window, maxFails, *goodEnough)
				printStats(label, results, *runs)
			}
		}
	}
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	var result []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			result = append(result, v)
		}
	}
	return result
}
