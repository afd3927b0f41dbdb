//go:build ignore

// build.go - demoreport build script
// Usage: go run build.go [-target=TARGET]
// Targets: build, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	module = "demoreport"
	binary = "demoexport"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	GOOS    string
	GOARCH  string
	Version string
}

var (
	rootDir string
	distDir string

	releasePlatforms = []string{"linux/amd64", "windows/amd64", "darwin/arm64"}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s; run from the repository root", rootDir))
	}
}

func main() {
	target := flag.String("target", "build", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "", "Version stamped into the binary (defaults to pkg/contracts.Version)")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{
		Verbose: *verbose,
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		Version: *version,
	}

	switch *target {
	case "build":
		buildBinary(ctx)
	case "test":
		runTests(ctx.Verbose)
	case "clean":
		clean()
	case "release":
		buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        demoreport - Build System        " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func buildBinary(ctx *BuildContext) string {
	name := binary
	if ctx.GOOS == "windows" {
		name += ".exe"
	}
	outputPath := filepath.Join(distDir, ctx.GOOS+"_"+ctx.GOARCH, name)
	printInfo(fmt.Sprintf("Building %s for %s/%s...", binary, ctx.GOOS, ctx.GOARCH))

	pkg := module + "/pkg/contracts"
	ldflags := fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		pkg, time.Now().UTC().Format(time.RFC3339), pkg, gitCommit())
	if ctx.Version != "" {
		ldflags += fmt.Sprintf(" -X %s.Version=%s", pkg, ctx.Version)
	}

	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + binary}
	if ctx.Verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
	}

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	// modernc.org/sqlite is pure Go
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH)
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", binary, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%s)", outputPath, humanize.Bytes(uint64(info.Size()))))
	}
	return outputPath
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		return
	}
	printSuccess("Build artifacts cleaned")
}

func buildRelease(ctx *BuildContext) {
	if ctx.Version == "" {
		printWarning("No -version given, binaries keep the version from pkg/contracts")
	}
	runTests(ctx.Verbose)
	for _, platform := range releasePlatforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		buildBinary(&BuildContext{Verbose: ctx.Verbose, GOOS: goos, GOARCH: goarch, Version: ctx.Version})
	}
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v] [-version=X.Y.Z]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  build    Build demoexport for the host platform (default)")
	fmt.Println("  test     Run the Go tests with the race detector")
	fmt.Println("  clean    Remove dist/")
	fmt.Println("  release  Test, then build for " + strings.Join(releasePlatforms, ", "))
}
