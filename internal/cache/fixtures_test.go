package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"demoreport/pkg/contracts/domain"
)

func testIdentity(suffix string) domain.MatchIdentity {
	return domain.MatchIdentity(strings.Repeat("a", 60) + suffix)
}

func sampleMatch(id domain.MatchIdentity) *domain.Match {
	return &domain.Match{
		Identity:      id,
		SchemaVersion: domain.SchemaVersion,
		Header: domain.MatchHeader{
			Identity:      id,
			MapName:       "de_inferno",
			ServerName:    "Valve CS:GO EU",
			ClientName:    "GOTV Demo",
			Source:        domain.SourceValve,
			PlaybackTime:  45 * time.Minute,
			PlaybackTicks: 172800,
		},
		Source:     domain.SourceValve,
		AnalyzedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Teams: [2]domain.Team{
			{Name: "Alpha", Score: 16, ScoreFirstHalf: 9, StartingSide: domain.SideTerrorist},
			{Name: "Bravo", Score: 10, ScoreFirstHalf: 6, StartingSide: domain.SideCounterTerrorist},
		},
		Players: []domain.Player{
			{SteamID: 1, Name: "ace", TeamName: "Alpha"},
			{SteamID: 2, Name: "bolt", TeamName: "Bravo"},
		},
		Rounds: []domain.Round{
			{Number: 1, Winner: domain.SideTerrorist, EndReason: "t_eliminated_ct", TeamOnT: "Alpha", TeamOnCT: "Bravo"},
		},
		Kills: []domain.Kill{
			{Tick: 100, Round: 1, KillerID: 1, KillerName: "ace", KillerSide: domain.SideTerrorist, KillerTeam: "Alpha",
				VictimID: 2, VictimName: "bolt", VictimSide: domain.SideCounterTerrorist, VictimTeam: "Bravo",
				Weapon: "AK-47", Headshot: true},
		},
		WeaponFired: []domain.WeaponFire{
			{Tick: 90, Round: 1, ShooterID: 1, ShooterName: "ace", ShooterSide: domain.SideTerrorist, Weapon: "AK-47"},
			{Tick: 95, Round: 1, ShooterID: 1, ShooterName: "ace", ShooterSide: domain.SideTerrorist, Weapon: "AK-47"},
		},
		PlayerBlinded: []domain.PlayerBlind{
			{Tick: 50, Round: 1, ThrowerID: 1, ThrowerName: "ace", ThrowerTeam: "Alpha",
				VictimID: 2, VictimName: "bolt", VictimTeam: "Bravo", Duration: 1500 * time.Millisecond},
		},
	}
}

// memoryObjects is an in-memory ObjectClient
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut func(key string) error
	puts    []string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (m *memoryObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		if err := m.failPut(key); err != nil {
			return err
		}
	}
	m.objects[key] = append([]byte(nil), data...)
	m.puts = append(m.puts, key)
	return nil
}

func (m *memoryObjects) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryObjects) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryObjects) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
