package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demoreport/internal/app"
	"demoreport/internal/config"
	"demoreport/internal/export/testutil"
	sharedtestutil "demoreport/internal/shared/testutil"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "single demo", args: []string{"-demo", "a.dem", "-force", "-source", "FACEIT"}},
		{name: "batch", args: []string{"-batch", "demos", "-format", "csv"}},
		{name: "cache list", args: []string{"-cache-list"}},
		{name: "no mode", args: nil, wantErr: true},
		{name: "two modes", args: []string{"-demo", "a.dem", "-cache-list"}, wantErr: true},
		{name: "bad source", args: []string{"-demo", "a.dem", "-source", "gotv"}, wantErr: true},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, &bytes.Buffer{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRun_InvalidFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-demo", "a.dem", "-batch", "x"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "exactly one of")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "demoreport v")
}

func TestRunWith_ExportAndCache(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	paths := cfg.ResolvePaths(base)

	header := sharedtestutil.SampleHeader()
	dec := &testutil.MockDecoder{Header: header, Match: sharedtestutil.SampleMatch()}
	demo := filepath.Join(base, "inferno.dem")
	require.NoError(t, os.WriteFile(demo, []byte("HL2DEMO"), 0644))

	var stdout, stderr bytes.Buffer
	code := runWith(context.Background(), &flags{demo: demo}, cfg, paths, &stdout, &stderr, app.WithDecoder(dec))
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Analyzing demo")
	assert.Contains(t, stdout.String(), "(analyzed)")
	assert.FileExists(t, filepath.Join(paths.ReportsDir, "inferno.xlsx"))

	stdout.Reset()
	code = runWith(context.Background(), &flags{cacheList: true}, cfg, paths, &stdout, &stderr, app.WithDecoder(dec))
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), string(sharedtestutil.SampleIdentity))

	code = runWith(context.Background(), &flags{cacheDelete: "../x"}, cfg, paths, &stdout, &stderr, app.WithDecoder(dec))
	assert.Equal(t, 2, code)

	stdout.Reset()
	code = runWith(context.Background(), &flags{cacheDelete: string(sharedtestutil.SampleIdentity)}, cfg, paths, &stdout, &stderr, app.WithDecoder(dec))
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "deleted")
}

func TestRunWith_MissingDemo(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	var stdout, stderr bytes.Buffer

	code := runWith(context.Background(), &flags{demo: filepath.Join(base, "gone.dem")}, cfg, cfg.ResolvePaths(base), &stdout, &stderr,
		app.WithDecoder(&testutil.MockDecoder{}))
	assert.Equal(t, 2, code)
	assert.NotEmpty(t, stderr.String())
}
