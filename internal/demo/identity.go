package demo

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"demoreport/pkg/contracts/domain"
)

// ComputeIdentity derives the match identity from header fields. Two
// recordings of the same match share every field hashed here, so the file
// path and name play no part.
func ComputeIdentity(mapName, serverName, clientName string, playbackTime time.Duration, ticks, frames int) domain.MatchIdentity {
	hasher := sha256.New()
	parts := []string{
		strings.TrimSpace(mapName),
		strings.TrimSpace(serverName),
		strings.TrimSpace(clientName),
		strconv.FormatInt(int64(playbackTime), 10),
		strconv.Itoa(ticks),
		strconv.Itoa(frames),
	}
	hasher.Write([]byte(strings.Join(parts, "\x1f")))
	return domain.MatchIdentity(hex.EncodeToString(hasher.Sum(nil)))
}

// DetectSource guesses the provenance of a demo from its server and client
// names. Unknown patterns map to SourceUnknown.
func DetectSource(serverName, clientName string) domain.Source {
	server := strings.ToLower(serverName)
	client := strings.ToLower(clientName)

	switch {
	case strings.Contains(server, "faceit"):
		return domain.SourceFaceit
	case strings.Contains(server, "esea"):
		return domain.SourceESEA
	case strings.Contains(server, "ebot"):
		return domain.SourceEBot
	case strings.Contains(server, "valve"):
		return domain.SourceValve
	case client != "" && !strings.Contains(client, "gotv") && !strings.Contains(client, "sourcetv"):
		// recorded by a player rather than the relay
		return domain.SourcePOV
	default:
		return domain.SourceUnknown
	}
}

// ParseSource maps a user supplied tag to a Source. The second value is
// false when the tag is not recognized.
func ParseSource(tag string) (domain.Source, bool) {
	switch s := domain.Source(strings.ToLower(strings.TrimSpace(tag))); s {
	case domain.SourceValve, domain.SourceFaceit, domain.SourceESEA,
		domain.SourceEBot, domain.SourcePOV, domain.SourceUnknown:
		return s, true
	default:
		return "", false
	}
}
