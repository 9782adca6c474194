package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/MEKXH/funbot/internal/version"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()

	return buf.String()
}

func TestCommandsCommand_PrintsOverview(t *testing.T) {
	setupHome(t)

	output := captureOutput(t, func() {
		if err := runCommands(nil, nil); err != nil {
			t.Fatalf("runCommands error: %v", err)
		}
	})

	cleanOutput := stripANSI(output)
	for _, want := range []string{
		"Slash Commands",
		"commands -- Available slash commands",
		"        image -- Request images from the internet",
		"                        random_dog -- Request a random dog image",
		"        quote -- Request a quote from the internet",
	} {
		if !strings.Contains(cleanOutput, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, cleanOutput)
		}
	}
}

func TestCommandsCommand_SingleCommand(t *testing.T) {
	setupHome(t)

	output := captureOutput(t, func() {
		if err := runCommands(nil, []string{"/JOKE"}); err != nil {
			t.Fatalf("runCommands error: %v", err)
		}
	})

	want := "joke -- Request a bad joke from the internet\n" +
		"    Subcommands:\n" +
		"        random -- Request a random joke\n\n"
	if output != want {
		t.Fatalf("unexpected joke help:\n%q\nwant\n%q", output, want)
	}

	if err := runCommands(nil, []string{"nope"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"init", "chat", "run", "status", "version", "commands", "fetch", "channels"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Fatalf("expected subcommand %s: %v", name, err)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	cmd := NewVersionCmd()
	if err := cmd.Flags().Set("json", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	output := captureOutput(t, func() {
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Fatalf("version: %v", err)
		}
	})

	var info version.Info
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("unmarshal %q: %v", output, err)
	}
	if info != version.Get() {
		t.Fatalf("expected %+v, got %+v", version.Get(), info)
	}
}

func TestVersionCmd_Text(t *testing.T) {
	cmd := NewVersionCmd()
	output := captureOutput(t, func() {
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Fatalf("version: %v", err)
		}
	})
	if first := strings.SplitN(output, "\n", 2)[0]; first != version.Get().String() {
		t.Fatalf("unexpected version line: %q", first)
	}
}
