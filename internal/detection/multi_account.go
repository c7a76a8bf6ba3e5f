// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package detection

import (
	"math"
	"sort"
	"time"

	"github.com/elevow/table-sub009/internal/models"
)

// MultiAccountAnalyzer combines weighted login signals into a single linkage
// verdict. It holds no state and no thresholds of its own.
type MultiAccountAnalyzer struct{}

// NewMultiAccountAnalyzer creates an analyzer.
func NewMultiAccountAnalyzer() *MultiAccountAnalyzer {
	return &MultiAccountAnalyzer{}
}

// signalResult is the outcome of one signal before weighting.
type signalResult struct {
	kind     models.EvidenceKind
	cfg      SignalConfig
	score    float64
	accounts []string
	shared   []models.SharedAttribute
	pairs    []models.AccountPair
}

func (r signalResult) triggered() bool {
	return len(r.accounts) > 0 && r.score >= r.cfg.Floor
}

// Analyze scores logins with the weights in cfg. Fewer than two distinct
// accounts yields confidence 0 and no linked accounts.
func (m *MultiAccountAnalyzer) Analyze(logins []LoginEvent, cfg MultiAccountConfig) AccountLinkage {
	events := make([]LoginEvent, 0, len(logins))
	accounts := make(map[string]struct{})
	for _, l := range logins {
		if l.AccountID == "" {
			continue
		}
		events = append(events, l)
		accounts[l.AccountID] = struct{}{}
	}
	if len(accounts) < 2 {
		return AccountLinkage{LinkedAccounts: []string{}, Confidence: 0, Signals: []models.Evidence{}}
	}

	total := len(accounts)
	results := []signalResult{
		sharedAttributeSignal(models.EvidenceSharedDevice, cfg.Device, events, total,
			func(l LoginEvent) string { return l.DeviceFingerprint }),
		sharedAttributeSignal(models.EvidenceSharedNetwork, cfg.Network, events, total,
			func(l LoginEvent) string { return l.NetworkOrigin }),
		temporalSignal(cfg.Temporal, events, cfg.TemporalWindowMs),
		behavioralSignal(cfg.Behavioral, events, cfg.BehavioralMinLogins),
	}

	var weighted, weights float64
	linked := make(map[string]struct{})
	signals := make([]models.Evidence, 0, len(results))
	for _, r := range results {
		weighted += r.cfg.Weight * r.score
		weights += r.cfg.Weight
		if r.triggered() {
			for _, a := range r.accounts {
				linked[a] = struct{}{}
			}
		}
		signals = append(signals, models.NewSignalEvidence(r.kind, models.SignalEvidence{
			Score:     r.score,
			Weight:    r.cfg.Weight,
			Floor:     r.cfg.Floor,
			Triggered: r.triggered(),
			Accounts:  r.accounts,
			Shared:    r.shared,
			Pairs:     r.pairs,
		}))
	}

	confidence := 0.0
	if weights > 0 {
		confidence = clamp01(weighted / weights)
	}
	return AccountLinkage{
		LinkedAccounts: sortedKeys(linked),
		Confidence:     confidence,
		Signals:        signals,
	}
}

// sharedAttributeSignal scores the share of accounts that have an attribute
// value in common with at least one other account.
func sharedAttributeSignal(kind models.EvidenceKind, cfg SignalConfig, events []LoginEvent, totalAccounts int, attr func(LoginEvent) string) signalResult {
	byValue := make(map[string]map[string]struct{})
	for _, e := range events {
		v := attr(e)
		if v == "" {
			continue
		}
		if byValue[v] == nil {
			byValue[v] = make(map[string]struct{})
		}
		byValue[v][e.AccountID] = struct{}{}
	}

	implicated := make(map[string]struct{})
	var shared []models.SharedAttribute
	for v, set := range byValue {
		if len(set) < 2 {
			continue
		}
		accs := sortedKeys(set)
		for _, a := range accs {
			implicated[a] = struct{}{}
		}
		shared = append(shared, models.SharedAttribute{Value: v, Accounts: accs})
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Value < shared[j].Value })

	return signalResult{
		kind:     kind,
		cfg:      cfg,
		score:    float64(len(implicated)) / float64(totalAccounts),
		accounts: sortedKeys(implicated),
		shared:   shared,
	}
}

// temporalSignal scores the share of consecutive logins that switch account
// within windowMs.
func temporalSignal(cfg SignalConfig, events []LoginEvent, windowMs int64) signalResult {
	res := signalResult{kind: models.EvidenceTemporal, cfg: cfg, accounts: []string{}}
	if len(events) < 2 {
		return res
	}

	ordered := append([]LoginEvent(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].AccountID < ordered[j].AccountID
	})

	counts := make(map[pair]int)
	correlated := 0
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if prev.AccountID == cur.AccountID || cur.Timestamp-prev.Timestamp > windowMs {
			continue
		}
		correlated++
		counts[newPair(prev.AccountID, cur.AccountID)]++
	}

	implicated := make(map[string]struct{})
	for p, n := range counts {
		implicated[p.a] = struct{}{}
		implicated[p.b] = struct{}{}
		res.pairs = append(res.pairs, models.AccountPair{A: p.a, B: p.b, Count: n})
	}
	sortPairs(res.pairs)
	res.score = float64(correlated) / float64(len(ordered)-1)
	res.accounts = sortedKeys(implicated)
	return res
}

// behavioralSignal compares hour-of-day login profiles. The score is the
// highest cosine similarity between two eligible accounts.
func behavioralSignal(cfg SignalConfig, events []LoginEvent, minLogins int) signalResult {
	res := signalResult{kind: models.EvidenceBehavioral, cfg: cfg, accounts: []string{}}

	profiles := make(map[string]*[24]float64)
	totals := make(map[string]int)
	for _, e := range events {
		p := profiles[e.AccountID]
		if p == nil {
			p = &[24]float64{}
			profiles[e.AccountID] = p
		}
		p[time.UnixMilli(e.Timestamp).UTC().Hour()]++
		totals[e.AccountID]++
	}

	var eligible []string
	for acc, n := range totals {
		if n >= minLogins {
			eligible = append(eligible, acc)
		}
	}
	sort.Strings(eligible)

	implicated := make(map[string]struct{})
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			sim := cosine(profiles[eligible[i]], profiles[eligible[j]])
			if sim > res.score {
				res.score = sim
			}
			if sim >= cfg.Floor {
				implicated[eligible[i]] = struct{}{}
				implicated[eligible[j]] = struct{}{}
				res.pairs = append(res.pairs, models.AccountPair{A: eligible[i], B: eligible[j], Similarity: sim})
			}
		}
	}
	res.score = clamp01(res.score)
	res.accounts = sortedKeys(implicated)
	return res
}

func cosine(a, b *[24]float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortPairs(ps []models.AccountPair) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].A != ps[j].A {
			return ps[i].A < ps[j].A
		}
		return ps[i].B < ps[j].B
	})
}
