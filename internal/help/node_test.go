package help

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestRender_LeafCommand(t *testing.T) {
	n := New().SetName("ping").SetDescription("Ping the bot")

	if got, want := n.Render(), "ping -- Ping the bot"; got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRender_EmptyNodeRendersEmptyTokens(t *testing.T) {
	if got := New().Render(); got != " -- " {
		t.Fatalf("expected empty tokens around separator, got %q", got)
	}
}

func TestRender_OptionsKeepInsertionOrder(t *testing.T) {
	n := New().SetName("quote").SetDescription("Quotes").
		AddOption(NewOption("c", "string", "third").WithRequired(true)).
		AddOption(NewOption("a", "integer", "first")).
		AddOption(NewOption("c", "string", "third").WithRequired(true))

	want := "quote -- Quotes\n" +
		"    Options:\n" +
		"        c: string\tthird (Required)\n" +
		"        a: integer\tfirst (Optional)\n" +
		"        c: string\tthird (Required)"
	if got := n.Render(); got != want {
		t.Fatalf("Render() =\n%q\nwant\n%q", got, want)
	}
}

func TestRender_RequiredLabel(t *testing.T) {
	tests := []struct {
		required bool
		suffix   string
	}{
		{required: true, suffix: "(Required)"},
		{required: false, suffix: "(Optional)"},
	}
	for _, tt := range tests {
		t.Run(tt.suffix, func(t *testing.T) {
			n := New().SetName("x").SetDescription("y").
				AddOption(Option{Name: "o", Kind: "string", Description: "d", Required: tt.required})
			lines := strings.Split(n.Render(), "\n")
			last := lines[len(lines)-1]
			if !strings.HasSuffix(last, tt.suffix) {
				t.Fatalf("expected option line to end with %s, got %q", tt.suffix, last)
			}
		})
	}
}

func TestRender_ImageTree(t *testing.T) {
	n := New().SetName("image").SetDescription("Request images from the internet").
		AddChild(New().SetName("random_dog").SetDescription("Request a random dog image")).
		AddChild(New().SetName("random_cat").SetDescription("Request a random cat image"))

	want := "image -- Request images from the internet\n" +
		"    Subcommands:\n" +
		"        random_dog -- Request a random dog image\n" +
		"        random_cat -- Request a random cat image\n"
	if got := n.Render(); got != want {
		t.Fatalf("Render() =\n%q\nwant\n%q", got, want)
	}
	if strings.Count(n.Render(), "Subcommands:") != 1 {
		t.Fatalf("expected a single Subcommands header")
	}
}

func TestRender_NestedTree(t *testing.T) {
	root := New().SetName("bot").SetDescription("root").
		AddChild(New().SetName("image").SetDescription("Images").
			AddOption(NewOption("size", "integer", "Size in px").WithRequired(true)).
			AddChild(New().SetName("dog").SetDescription("Dog")))

	want := "bot -- root\n" +
		"    Subcommands:\n" +
		"        image -- Images\n" +
		"            Options:\n" +
		"                size: integer\tSize in px (Required)\n" +
		"            Subcommands:\n" +
		"                        dog -- Dog\n" +
		"\n"
	if got := root.Render(); got != want {
		t.Fatalf("Render() =\n%q\nwant\n%q", got, want)
	}
}

func TestRender_IsIdempotent(t *testing.T) {
	root := sampleTree()
	first := root.Render()
	second := root.Render()
	if first != second {
		t.Fatalf("expected identical renders:\n%q\n%q", first, second)
	}
	if root.String() != first {
		t.Fatalf("String() differs from Render()")
	}
}

func TestRender_DepthGrowsByOneBlockPerLevel(t *testing.T) {
	const levels = 5
	nodes := make([]*Node, levels)
	for i := range nodes {
		nodes[i] = New().SetName(fmt.Sprintf("n%d", i)).SetDescription("level").
			AddOption(NewOption("o", "string", "opt"))
	}
	for i := levels - 2; i >= 0; i-- {
		nodes[i].AddChild(nodes[i+1])
	}

	var widths []int
	for _, line := range strings.Split(nodes[0].Render(), "\n") {
		if strings.TrimSpace(line) == "Options:" {
			widths = append(widths, len(line)-len(strings.TrimLeft(line, " ")))
		}
	}
	if len(widths) != levels {
		t.Fatalf("expected %d Options headers, got %d", levels, len(widths))
	}
	for depth, w := range widths {
		if want := 4 + 8*depth; w != want {
			t.Fatalf("depth %d: indentation %d, want %d", depth, w, want)
		}
	}
}

func TestRender_SiblingsRenderIndependently(t *testing.T) {
	first := New().SetName("a").SetDescription("first").
		AddOption(NewOption("x", "string", "x")).
		AddChild(New().SetName("a1").SetDescription("deep"))
	second := New().SetName("b").SetDescription("second").
		AddOption(NewOption("y", "integer", "y"))
	root := New().SetName("root").SetDescription("r").AddChild(first).AddChild(second)

	out := root.Render()
	if !strings.Contains(out, "        "+second.RenderAt(1)+"\n") {
		t.Fatalf("second child not rendered at depth 1:\n%s", out)
	}
	if !strings.HasSuffix(out, "        "+second.RenderAt(1)+"\n") {
		t.Fatalf("expected second child block last:\n%s", out)
	}
	if !strings.Contains(out, "\n            Options:\n                y: integer\ty (Optional)") {
		t.Fatalf("second child options not at depth 1 indentation:\n%s", out)
	}
}

func TestRenderAt_NegativeDepthIsRoot(t *testing.T) {
	n := sampleTree()
	if n.RenderAt(-3) != n.Render() {
		t.Fatalf("expected negative depth to render as root")
	}
}

func TestRender_ConcurrentCallsAgree(t *testing.T) {
	root := sampleTree()
	want := root.Render()

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := root.Render(); got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Fatalf("concurrent render differs:\n%q", got)
	}
}

func TestAccessors_ReturnCopies(t *testing.T) {
	n := sampleTree()
	opts := n.Options()
	opts[0].Name = "mutated"
	children := n.Children()
	children[0] = New().SetName("other")

	if n.Options()[0].Name == "mutated" {
		t.Fatal("Options() leaked internal slice")
	}
	if n.Children()[0].Name() == "other" {
		t.Fatal("Children() leaked internal slice")
	}
	if _, ok := n.Child("random"); !ok {
		t.Fatal("expected Child lookup to find random")
	}
	if _, ok := n.Child("missing"); ok {
		t.Fatal("expected Child lookup to miss")
	}
}

func TestAddChild_IgnoresNil(t *testing.T) {
	n := New().SetName("x").AddChild(nil)
	if len(n.Children()) != 0 {
		t.Fatalf("expected nil child to be ignored")
	}
}

func sampleTree() *Node {
	return New().SetName("quote").SetDescription("Request a quote").
		AddOption(NewOption("format", "string", "Output format")).
		AddChild(New().SetName("random").SetDescription("Random quote").
			AddOption(NewOption("tag", "string", "Tag filter"))).
		AddChild(New().SetName("today").SetDescription("Quote of the day"))
}
