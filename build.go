//go:build ignore

// build.go - GriefPulse build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, griefctl, test, release, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

const version = "0.1.0"

var (
	distDir = "dist"

	// key = directory under cmd/, value = binary name
	executables = map[string]string{
		"web":      "griefpulse",
		"griefctl": "griefctl",
	}

	releaseTargets = []struct{ goos, goarch string }{
		{"linux", "amd64"},
		{"linux", "arm64"},
		{"windows", "amd64"},
		{"darwin", "arm64"},
	}
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	color.Cyan("===========================================")
	color.Cyan("          GriefPulse - Build              ")
	color.Cyan("===========================================")
	fmt.Println()

	start := time.Now()
	var err error
	switch *target {
	case "all":
		err = buildAll(*verbose)
	case "web", "griefctl":
		err = buildExecutable(*target, "", "", *verbose)
	case "test":
		err = run(*verbose, "go", "test", "-race", "./...")
	case "release":
		err = buildRelease(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("%s %s\n", color.BlueString("[INFO]"), msg) }
func printSuccess(msg string) { fmt.Printf("%s %s\n", color.GreenString("[SUCCESS]"), msg) }
func printError(msg string)   { fmt.Printf("%s %s\n", color.RedString("[ERROR]"), msg) }

func buildAll(verbose bool) error {
	printInfo("Building all binaries...")
	for name := range executables {
		if err := buildExecutable(name, "", "", verbose); err != nil {
			return err
		}
	}
	return copyConfig()
}

// buildExecutable builds cmd/<name> into dist/, cross-compiling when goos is set
func buildExecutable(name, goos, goarch string, verbose bool) error {
	out := executables[name]
	if out == "" {
		return fmt.Errorf("unknown executable: %s", name)
	}
	dir := distDir
	env := os.Environ()
	if goos != "" {
		dir = filepath.Join(distDir, goos+"_"+goarch)
		env = append(env, "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
		if goos == "windows" {
			out += ".exe"
		}
	}
	outputPath := filepath.Join(dir, out)
	printInfo(fmt.Sprintf("Building %s -> %s", name, outputPath))

	ldflags := fmt.Sprintf("-s -w -X main.Version=%s", version)
	if name == "web" {
		ldflags += fmt.Sprintf(" -X main.Commit=%s -X main.BuildTime=%s", gitCommit(), time.Now().UTC().Format(time.RFC3339))
	}

	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + name}
	cmd := exec.Command("go", args...)
	cmd.Env = env
	if verbose {
		fmt.Printf("go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", out, float64(info.Size())/1024/1024))
	}
	return nil
}

func buildRelease(verbose bool) error {
	for _, t := range releaseTargets {
		for name := range executables {
			if err := buildExecutable(name, t.goos, t.goarch, verbose); err != nil {
				return err
			}
		}
	}
	return copyConfig()
}

// copyConfig ships the sample configuration next to the binaries when present
func copyConfig() error {
	src := filepath.Join("configs", "config.yaml")
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(distDir, "configs"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(distDir, "configs", "config.yaml"), data, 0o644)
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func run(verbose bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("%s %s\n", name, strings.Join(args, " "))
	}
	return cmd.Run()
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all       Build griefpulse and griefctl into dist/ (default)")
	fmt.Println("  web       Build the dashboard server")
	fmt.Println("  griefctl  Build the command-line tool")
	fmt.Println("  test      Run the test suite with the race detector")
	fmt.Println("  release   Cross-compile both binaries")
	fmt.Println("  clean     Remove dist/")
}
