package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v3/pkg/demoinfocs"
	"github.com/markus-wa/demoinfocs-golang/v3/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v3/pkg/demoinfocs/events"

	apperrors "demoreport/internal/errors"
	"demoreport/pkg/contracts/domain"
)

// headerSize is the fixed size of the demo file header in bytes
const headerSize = 1072

// Parser reads demo files with demoinfocs. It is safe for concurrent use;
// every call opens its own file and parser.
type Parser struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewParser creates a parser
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger.With("component", "demo_parser"),
		now:    time.Now,
	}
}

// ReadHeader reads only the demo header and derives the match identity
func (p *Parser) ReadHeader(ctx context.Context, path string) (*domain.MatchHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("header", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, apperrors.NewInvalidInputError(path, err)
	}
	if info.Size() < headerSize {
		return nil, apperrors.NewInvalidInputError(path,
			fmt.Errorf("file too small for a demo header (%d bytes)", info.Size()))
	}

	raw, err := parseHeader(f)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(path, err)
	}
	if raw.MapName == "" && raw.PlaybackTicks == 0 {
		return nil, apperrors.NewInvalidInputError(path, errors.New("empty demo header"))
	}

	header := &domain.MatchHeader{
		Identity: ComputeIdentity(raw.MapName, raw.ServerName, raw.ClientName,
			raw.PlaybackTime, raw.PlaybackTicks, raw.PlaybackFrames),
		Path:           path,
		MapName:        raw.MapName,
		ServerName:     raw.ServerName,
		ClientName:     raw.ClientName,
		Source:         DetectSource(raw.ServerName, raw.ClientName),
		PlaybackTime:   raw.PlaybackTime,
		PlaybackTicks:  raw.PlaybackTicks,
		PlaybackFrames: raw.PlaybackFrames,
	}

	p.logger.DebugContext(ctx, "demo_header_read",
		slog.String("identity", header.Identity.Short()),
		slog.String("map", header.MapName),
		slog.String("source", string(header.Source)))

	return header, nil
}

// Analyze runs the full pass over the demo the header was read from.
// Cancelling ctx stops the parser and returns a cancellation error.
func (p *Parser) Analyze(ctx context.Context, header *domain.MatchHeader) (*domain.Match, error) {
	if header == nil || header.Path == "" {
		return nil, apperrors.NewAnalysisError(errors.New("header without demo path"))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("analysis", err)
	}

	f, err := os.Open(header.Path)
	if err != nil {
		return nil, apperrors.NewAnalysisError(err)
	}
	defer f.Close()

	parser := demoinfocs.NewParser(f)
	defer parser.Close()

	col := newCollector(*header)
	registerHandlers(parser, col)

	stop := context.AfterFunc(ctx, parser.Cancel)
	defer stop()

	start := p.now()
	err = parser.ParseToEnd()

	switch {
	case ctx.Err() != nil:
		return nil, apperrors.NewCancelledError("analysis", ctx.Err())
	case errors.Is(err, demoinfocs.ErrCancelled):
		return nil, apperrors.NewCancelledError("analysis", context.Canceled)
	case errors.Is(err, demoinfocs.ErrUnexpectedEndOfDemo):
		// truncated recordings are common; keep what was parsed
		p.logger.WarnContext(ctx, "demo_truncated",
			slog.String("identity", header.Identity.Short()),
			slog.Int("rounds", len(col.rounds)))
	case err != nil:
		return nil, apperrors.NewAnalysisError(fmt.Errorf("parse %s: %w", header.Path, err))
	}

	match := col.finish(p.now())

	p.logger.InfoContext(ctx, "demo_analyzed",
		slog.String("identity", header.Identity.Short()),
		slog.Int("rounds", len(match.Rounds)),
		slog.Int("kills", len(match.Kills)),
		slog.Int("weapon_fired", len(match.WeaponFired)),
		slog.Int("player_blinded", len(match.PlayerBlinded)),
		slog.Duration("elapsed", p.now().Sub(start)))

	return match, nil
}

// parseHeader reads the header, turning decoder panics on malformed input
// into errors
func parseHeader(f *os.File) (raw common.DemoHeader, err error) {
	parser := demoinfocs.NewParser(f)
	defer parser.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed demo header: %v", r)
		}
	}()
	return parser.ParseHeader()
}

func registerHandlers(parser demoinfocs.Parser, col *collector) {
	tick := func() int { return parser.GameState().IngameTick() }

	parser.RegisterEventHandler(func(events.MatchStart) {
		col.reset()
	})

	parser.RegisterEventHandler(func(events.RoundStart) {
		gs := parser.GameState()
		col.onRoundStart(tick(), clanOf(gs.TeamTerrorists()), clanOf(gs.TeamCounterTerrorists()))
	})

	parser.RegisterEventHandler(func(e events.RoundEnd) {
		col.onRoundEnd(tick(), sideOf(e.Winner), roundEndReason(e))
	})

	parser.RegisterEventHandler(func(e events.Kill) {
		col.onKill(tick(), toParticipant(e.Killer), toParticipant(e.Victim), toParticipant(e.Assister),
			weaponName(e.Weapon), e.IsHeadshot, e.PenetratedObjects)
	})

	parser.RegisterEventHandler(func(e events.WeaponFire) {
		shooter := toParticipant(e.Shooter)
		if shooter == nil {
			return
		}
		col.onWeaponFire(tick(), *shooter, weaponName(e.Weapon))
	})

	parser.RegisterEventHandler(func(e events.PlayerFlashed) {
		thrower, victim := toParticipant(e.Attacker), toParticipant(e.Player)
		if thrower == nil || victim == nil {
			return
		}
		col.onPlayerFlashed(tick(), *thrower, *victim, e.FlashDuration())
	})
}

func toParticipant(p *common.Player) *participant {
	if p == nil {
		return nil
	}
	return &participant{
		ID:   p.SteamID64,
		Name: p.Name,
		Side: sideOf(p.Team),
		Clan: clanOf(p.TeamState),
	}
}

func clanOf(ts *common.TeamState) string {
	if ts == nil {
		return ""
	}
	return strings.TrimSpace(ts.ClanName())
}

func sideOf(team common.Team) domain.Side {
	switch team {
	case common.TeamTerrorists:
		return domain.SideTerrorist
	case common.TeamCounterTerrorists:
		return domain.SideCounterTerrorist
	default:
		return domain.SideNone
	}
}

func weaponName(e *common.Equipment) string {
	if e == nil {
		return "World"
	}
	return e.String()
}

func roundEndReason(e events.RoundEnd) string {
	switch e.Reason {
	case events.RoundEndReasonTargetBombed:
		return "bomb_exploded"
	case events.RoundEndReasonBombDefused:
		return "bomb_defused"
	case events.RoundEndReasonCTWin:
		return "ct_eliminated_t"
	case events.RoundEndReasonTerroristsWin:
		return "t_eliminated_ct"
	case events.RoundEndReasonTargetSaved:
		return "time_expired"
	case events.RoundEndReasonDraw:
		return "draw"
	}
	msg := strings.TrimPrefix(e.Message, "#SFUI_Notice_")
	if msg == "" {
		return "unknown"
	}
	return strings.ToLower(msg)
}
