// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package detection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/elevow/table-sub009/internal/models"
)

// CollusionAnalyzer looks for grouping and chip dumping in a batch of hands.
// It is stateless; the caller passes the whole window to Analyze.
type CollusionAnalyzer struct {
	config CollusionConfig
}

// NewCollusionAnalyzer creates an analyzer with the given thresholds.
func NewCollusionAnalyzer(config CollusionConfig) *CollusionAnalyzer {
	return &CollusionAnalyzer{config: config}
}

// pair is an unordered account pair with a < b.
type pair struct{ a, b string }

func newPair(x, y string) pair {
	if x > y {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

// transfer is a directed source -> destination edge.
type transfer struct{ src, dst string }

type pairStats struct {
	count int
	folds int
	hands []string
}

type transferStats struct {
	amount       float64
	occurrences  int
	srcCommitted float64
	dstCommitted float64
	hands        []string
}

// Analyze returns every grouping and chip-dumping pattern in hands that
// crosses the configured thresholds, one alert draft per pattern and one
// evidence record per pattern.
func (a *CollusionAnalyzer) Analyze(hands []HandRecord) CollusionDetection {
	played := make(map[string]int)
	pairs := make(map[pair]*pairStats)
	transfers := make(map[transfer]*transferStats)

	for i := range hands {
		h := &hands[i]
		participants := handParticipants(h)
		if len(participants) < 2 {
			continue
		}
		for _, p := range participants {
			played[p]++
		}

		folded := foldsFacingBet(h)
		for x := 0; x < len(participants); x++ {
			for y := x + 1; y < len(participants); y++ {
				key := newPair(participants[x], participants[y])
				ps := pairs[key]
				if ps == nil {
					ps = &pairStats{}
					pairs[key] = ps
				}
				ps.count++
				ps.hands = a.appendHand(ps.hands, h.ID)
				if folded[key] {
					ps.folds++
				}
			}
		}

		a.accumulateTransfers(h, participants, transfers)
	}

	var det CollusionDetection
	det.Patterns.Grouping = a.groupingPatterns(pairs, played)
	det.Patterns.ChipDumping = a.chipDumpPatterns(transfers)
	det.Alerts, det.Evidence = buildDrafts(det.Patterns)
	return det
}

// handParticipants returns the sorted distinct accounts of a hand. Players is
// authoritative; actions fill in when it is empty.
func handParticipants(h *HandRecord) []string {
	seen := make(map[string]struct{}, len(h.Players))
	add := func(id string) {
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	for _, p := range h.Players {
		add(p)
	}
	if len(seen) == 0 {
		for _, act := range h.Actions {
			add(act.AccountID)
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// foldsFacingBet marks the pairs in which one account folded to the other's
// bet or raise at least once during the hand.
func foldsFacingBet(h *HandRecord) map[pair]bool {
	out := make(map[pair]bool)
	aggressor := ""
	for _, act := range h.Actions {
		switch {
		case act.Kind.aggressive():
			aggressor = act.AccountID
		case act.Kind == ActionFold && aggressor != "" && aggressor != act.AccountID:
			out[newPair(aggressor, act.AccountID)] = true
		}
	}
	return out
}

// accumulateTransfers credits every chip a loser committed to the winners of
// the hand. Split pots divide the credit evenly.
func (a *CollusionAnalyzer) accumulateTransfers(h *HandRecord, participants []string, transfers map[transfer]*transferStats) {
	present := make(map[string]bool, len(participants))
	for _, p := range participants {
		present[p] = true
	}

	winners := make([]string, 0, len(h.Winners))
	isWinner := make(map[string]bool, len(h.Winners))
	for _, w := range h.Winners {
		if present[w] && !isWinner[w] {
			isWinner[w] = true
			winners = append(winners, w)
		}
	}
	if len(winners) == 0 {
		return
	}

	committed := make(map[string]float64)
	for _, act := range h.Actions {
		if !act.Kind.commits() || act.Amount == nil || *act.Amount <= 0 || !present[act.AccountID] {
			continue
		}
		committed[act.AccountID] += *act.Amount
	}

	share := 1 / float64(len(winners))
	for src, amount := range committed {
		if isWinner[src] {
			continue
		}
		for _, dst := range winners {
			key := transfer{src: src, dst: dst}
			ts := transfers[key]
			if ts == nil {
				ts = &transferStats{}
				transfers[key] = ts
			}
			ts.amount += amount * share
			ts.occurrences++
			ts.srcCommitted += amount
			ts.dstCommitted += committed[dst]
			ts.hands = a.appendHand(ts.hands, h.ID)
		}
	}
}

func (a *CollusionAnalyzer) appendHand(hands []string, id string) []string {
	if id == "" {
		return hands
	}
	if a.config.MaxEvidenceHands > 0 && len(hands) >= a.config.MaxEvidenceHands {
		return hands
	}
	return append(hands, id)
}

// groupingPatterns reports every maximal set of accounts in which each pair
// shared more than the threshold of hands. Accounts linked only through a
// common partner never land in the same pattern.
func (a *CollusionAnalyzer) groupingPatterns(pairs map[pair]*pairStats, played map[string]int) []GroupingPattern {
	threshold := a.config.GroupingCoOccurrenceThreshold
	adj := make(map[string]map[string]struct{})
	link := func(x, y string) {
		if adj[x] == nil {
			adj[x] = make(map[string]struct{})
		}
		adj[x][y] = struct{}{}
	}
	for key, ps := range pairs {
		if ps.count > threshold {
			link(key.a, key.b)
			link(key.b, key.a)
		}
	}
	if len(adj) == 0 {
		return nil
	}

	cliques := maximalCliques(adj)
	out := make([]GroupingPattern, 0, len(cliques))
	for _, accounts := range cliques {
		out = append(out, a.groupingPattern(accounts, pairs, played))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// groupingPattern summarizes the pairs of one clique. accounts is sorted.
func (a *CollusionAnalyzer) groupingPattern(accounts []string, pairs map[pair]*pairStats, played map[string]int) GroupingPattern {
	g := GroupingPattern{Accounts: accounts}
	var rateSum float64
	edges := 0
	handSet := make(map[string]struct{})

	for x := 0; x < len(accounts); x++ {
		for y := x + 1; y < len(accounts); y++ {
			key := pair{a: accounts[x], b: accounts[y]}
			ps := pairs[key]
			if edges == 0 || ps.count < g.CoOccurrences {
				g.CoOccurrences = ps.count
			}
			rateSum += float64(ps.count) / float64(min(played[key.a], played[key.b]))
			edges++

			if rate := float64(ps.folds) / float64(ps.count); rate > g.SoftPlayRate {
				g.SoftPlayRate = rate
				g.FoldsToPartner = ps.folds
			}
			for _, h := range ps.hands {
				handSet[h] = struct{}{}
			}
		}
	}

	g.Confidence = clamp01(rateSum / float64(edges))
	g.HandIDs = a.capHands(sortedKeys(handSet))
	return g
}

// maximalCliques lists the maximal cliques of adj (Bron-Kerbosch with
// pivoting). Each clique is sorted; traversal follows sorted account order so
// the result is deterministic.
func maximalCliques(adj map[string]map[string]struct{}) [][]string {
	var out [][]string

	var expand func(r []string, p, x map[string]struct{})
	expand = func(r []string, p, x map[string]struct{}) {
		if len(p) == 0 {
			if len(x) == 0 {
				clique := append([]string(nil), r...)
				sort.Strings(clique)
				out = append(out, clique)
			}
			return
		}
		pivot := choosePivot(adj, p, x)
		for _, v := range sortedKeys(p) {
			if _, ok := adj[pivot][v]; ok {
				continue
			}
			expand(append(r, v), intersect(p, adj[v]), intersect(x, adj[v]))
			delete(p, v)
			x[v] = struct{}{}
		}
	}

	p := make(map[string]struct{}, len(adj))
	for v := range adj {
		p[v] = struct{}{}
	}
	expand(nil, p, make(map[string]struct{}))
	return out
}

// choosePivot picks the vertex of p or x with the most neighbors in p.
func choosePivot(adj map[string]map[string]struct{}, p, x map[string]struct{}) string {
	best, bestDegree := "", -1
	for _, set := range []map[string]struct{}{p, x} {
		for _, u := range sortedKeys(set) {
			degree := 0
			for v := range adj[u] {
				if _, ok := p[v]; ok {
					degree++
				}
			}
			if degree > bestDegree {
				best, bestDegree = u, degree
			}
		}
	}
	return best
}

func intersect(set, with map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for v := range set {
		if _, ok := with[v]; ok {
			out[v] = struct{}{}
		}
	}
	return out
}

func (a *CollusionAnalyzer) chipDumpPatterns(transfers map[transfer]*transferStats) []ChipDumpingPattern {
	minOcc := a.config.ChipDumpOccurrenceThreshold
	var out []ChipDumpingPattern
	for key, ts := range transfers {
		if ts.amount <= a.config.ChipDumpAmountThreshold || ts.occurrences <= minOcc {
			continue
		}
		frequency := clamp01(float64(ts.occurrences) / float64(2*max(minOcc, 1)))
		dominance := ts.srcCommitted / (ts.srcCommitted + ts.dstCommitted)
		out = append(out, ChipDumpingPattern{
			Source:      key.src,
			Destination: key.dst,
			Amount:      ts.amount,
			Occurrences: ts.occurrences,
			Confidence:  clamp01(frequency * dominance),
			HandIDs:     ts.hands,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func (a *CollusionAnalyzer) capHands(hands []string) []string {
	if a.config.MaxEvidenceHands > 0 && len(hands) > a.config.MaxEvidenceHands {
		return hands[:a.config.MaxEvidenceHands]
	}
	return hands
}

// buildDrafts emits one draft and one evidence record per distinct pattern key.
func buildDrafts(p Patterns) ([]models.AlertDraft, []models.Evidence) {
	drafts := make([]models.AlertDraft, 0, len(p.Grouping)+len(p.ChipDumping))
	evidence := make([]models.Evidence, 0, len(p.Grouping)+len(p.ChipDumping))
	seen := make(map[string]bool)

	for _, g := range p.Grouping {
		key := "grouping:" + g.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		severity := models.SeverityMedium
		if g.SoftPlayRate >= 0.5 {
			severity = models.SeverityHigh
		}
		drafts = append(drafts, models.AlertDraft{
			Type:     models.AlertTypeGrouping,
			Severity: severity,
			Message: fmt.Sprintf("Accounts %s repeatedly shared tables, each pair at least %d hands (confidence %.0f%%)",
				strings.Join(g.Accounts, ", "), g.CoOccurrences, g.Confidence*100),
			Involved: append([]string(nil), g.Accounts...),
		})
		evidence = append(evidence, models.NewGroupingEvidence(models.GroupingEvidence{
			Accounts:       append([]string(nil), g.Accounts...),
			CoOccurrences:  g.CoOccurrences,
			Confidence:     g.Confidence,
			FoldsToPartner: g.FoldsToPartner,
			SoftPlayRate:   g.SoftPlayRate,
			HandIDs:        append([]string(nil), g.HandIDs...),
		}))
	}

	for _, c := range p.ChipDumping {
		key := "chip-dump:" + c.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		severity := models.SeverityMedium
		if c.Confidence >= 0.7 {
			severity = models.SeverityHigh
		}
		drafts = append(drafts, models.AlertDraft{
			Type:     models.AlertTypeChipDump,
			Severity: severity,
			Message: fmt.Sprintf("%s lost %.2f chips to %s across %d hands (confidence %.0f%%)",
				c.Source, c.Amount, c.Destination, c.Occurrences, c.Confidence*100),
			Involved: []string{c.Source, c.Destination},
		})
		evidence = append(evidence, models.NewChipDumpEvidence(models.ChipDumpEvidence{
			Source:      c.Source,
			Destination: c.Destination,
			Amount:      c.Amount,
			Occurrences: c.Occurrences,
			Confidence:  c.Confidence,
			HandIDs:     append([]string(nil), c.HandIDs...),
		}))
	}
	return drafts, evidence
}

func groupKey(accounts []string) string {
	sorted := append([]string(nil), accounts...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
