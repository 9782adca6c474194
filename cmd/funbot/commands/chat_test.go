package commands

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MEKXH/funbot/internal/bus"
)

type fakeReplier struct {
	inputs []string
}

func (f *fakeReplier) Reply(ctx context.Context, channel, chatID, senderID, content string) (*bus.OutboundMessage, error) {
	f.inputs = append(f.inputs, content)
	return bus.NewReply(&bus.InboundMessage{Channel: channel, ChatID: chatID}, "pong"), nil
}

func TestChatCommand_SingleMessagePing(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	output := captureOutput(t, func() {
		if err := runChat(nil, []string{"/ping"}); err != nil {
			t.Fatalf("runChat error: %v", err)
		}
	})

	if strings.TrimSpace(output) != "pong" {
		t.Fatalf("expected pong, got: %q", output)
	}
}

func TestChatCommand_SingleMessageNotACommand(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	output := captureOutput(t, func() {
		if err := runChat(nil, []string{"hello"}); err != nil {
			t.Fatalf("runChat error: %v", err)
		}
	})

	if !strings.Contains(output, "Try /help") {
		t.Fatalf("expected a hint about /help, got: %s", output)
	}
}

func TestChatCommand_SingleMessageHelpTree(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	output := captureOutput(t, func() {
		if err := runChat(nil, []string{"/help", "image"}); err != nil {
			t.Fatalf("runChat error: %v", err)
		}
	})

	if !strings.HasPrefix(output, "image -- Request images from the internet\n") {
		t.Fatalf("unexpected help output: %q", output)
	}
}

func TestModel_EnterSendsInputAndShowsReply(t *testing.T) {
	r := &fakeReplier{}
	m := newChatModel(context.Background(), r)
	m.renderer = nil
	m.textarea.SetValue("/ping")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if !m.thinking {
		t.Fatal("expected model to wait for a reply")
	}
	if cmd == nil {
		t.Fatal("expected a command to fetch the reply")
	}
	if m.textarea.Value() != "" {
		t.Fatalf("expected input to be cleared, got %q", m.textarea.Value())
	}

	reply := m.ask("/ping")()
	next, _ = m.Update(reply)
	m = next.(model)
	if m.thinking {
		t.Fatal("expected thinking to stop after the reply")
	}
	if len(r.inputs) != 1 || r.inputs[0] != "/ping" {
		t.Fatalf("unexpected replier inputs: %v", r.inputs)
	}
	last := m.history[len(m.history)-1]
	if !strings.Contains(last, "pong") {
		t.Fatalf("expected reply in history, got %q", last)
	}
}

func TestModel_EnterIgnoredWhileThinking(t *testing.T) {
	m := newChatModel(context.Background(), &fakeReplier{})
	m.thinking = true
	m.textarea.SetValue("/joke")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no command while a reply is pending")
	}
	if next.(model).textarea.Value() != "/joke" {
		t.Fatal("expected input to be kept while a reply is pending")
	}
}
